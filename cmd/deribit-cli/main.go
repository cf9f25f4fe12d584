// deribit-cli 交互式 Deribit 交易命令行：连接、认证、下单、查询与订阅。
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/betbot/dbtrader/internal/deribit"
	"github.com/betbot/dbtrader/internal/domain"
	"github.com/betbot/dbtrader/internal/infrastructure/websocket"
	"github.com/betbot/dbtrader/internal/journal"
	"github.com/betbot/dbtrader/internal/metrics"
	"github.com/betbot/dbtrader/internal/rpc"
	"github.com/betbot/dbtrader/internal/services"
	"github.com/betbot/dbtrader/pkg/config"
	"github.com/betbot/dbtrader/pkg/logger"
	"github.com/betbot/dbtrader/pkg/ratelimit"
	"github.com/betbot/dbtrader/pkg/secretstore"
	"github.com/betbot/dbtrader/pkg/shutdown"
	"github.com/sirupsen/logrus"
)

var cliLog = logrus.WithField("component", "deribit-cli")

func main() {
	configPath := flag.String("config", "", "配置文件路径（.yaml/.yml/.json，可选）")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
		Quiet:      cfg.Log.Quiet,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sd := shutdown.NewManager()
	sd.OnShutdown("logger", func(context.Context) { _ = logger.Close() })

	creds := loadCredentials(cfg, sd)

	endpoint := websocket.NewEndpoint(&websocket.Config{
		HandshakeTimeout: time.Duration(cfg.Transport.HandshakeTimeoutMs) * time.Millisecond,
		PingInterval:     time.Duration(cfg.Transport.PingIntervalMs) * time.Millisecond,
		HistorySize:      cfg.Transport.History,
	})
	sd.OnShutdown("websocket", func(context.Context) { endpoint.CloseAll("client shutdown") })

	opts := services.Options{
		URL:          cfg.Exchange.WSURL,
		Correlation:  services.CorrelationMode(cfg.Auth.Correlation),
		PollInterval: cfg.PollInterval(),
		Timeout:      cfg.AuthTimeout(),
		PrefixLen:    websocket.MsgTypeLen,
		Limits: ratelimit.NewManager(ratelimit.Limits{
			MatchingCapacity:    cfg.RateLimit.MatchingCapacity,
			MatchingRefill:      cfg.RateLimit.MatchingRefill,
			NonMatchingCapacity: cfg.RateLimit.NonMatchingCapacity,
			NonMatchingRefill:   cfg.RateLimit.NonMatchingRefill,
		}),
		RateCategory: deribit.RateCategory,
		DedupeWindow: cfg.DedupeWindow(),
	}
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			cliLog.Warnf("打开请求日志失败，继续运行但不记录: %v", err)
		} else {
			opts.Journal = j
			sd.OnShutdown("journal", func(context.Context) { _ = j.Close() })
		}
	}

	svc := services.NewTradingService(deribit.NewAdapter(&rpc.IDGenerator{}), endpoint, creds, opts)
	sd.OnShutdown("trading", func(context.Context) { svc.Close() })

	if cfg.MetricsListen != "" {
		status := func() metrics.Status {
			return metrics.Status{
				SessionID:   svc.Session().ID(),
				State:       svc.State().String(),
				ConnID:      svc.Session().ConnID(),
				Correlation: string(svc.Correlation()),
			}
		}
		if _, err := metrics.StartAsync(ctx, cfg.MetricsListen, status); err != nil {
			cliLog.Warnf("metrics 服务启动失败: %v", err)
		}
	}

	rest := deribit.NewRESTClient(cfg.Exchange.RESTURL, 10*time.Second)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	cliLog.Infof("🚀 deribit-cli 已启动: url=%s correlation=%s", cfg.Exchange.WSURL, svc.Correlation())
	newREPL(svc, endpoint, rest, lines, os.Stdout).run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sd.Shutdown(shutdownCtx)
}

// loadCredentials 解析 API 凭证；缺失时只告警，连接与公开接口仍可使用
func loadCredentials(cfg *config.Config, sd *shutdown.Manager) domain.Credentials {
	var store config.SecretReader
	if cfg.Credentials.SecretDB != "" {
		key, err := secretstore.ParseKey(os.Getenv("DBT_SECRET_KEY"))
		if err != nil {
			cliLog.Warnf("DBT_SECRET_KEY 无效: %v", err)
		} else {
			ss, err := secretstore.Open(secretstore.OpenOptions{
				Path:          cfg.Credentials.SecretDB,
				EncryptionKey: key,
				ReadOnly:      true,
			})
			if err != nil {
				cliLog.Warnf("打开加密凭证存储失败: %v", err)
			} else {
				store = ss
				sd.OnShutdown("secretstore", func(context.Context) { _ = ss.Close() })
			}
		}
	}

	creds, err := config.ResolveCredentials(cfg.Credentials, store)
	if err != nil {
		cliLog.Warnf("⚠️ %v，deribit_auth 将不可用", err)
		return domain.Credentials{}
	}
	return domain.Credentials{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret}
}
