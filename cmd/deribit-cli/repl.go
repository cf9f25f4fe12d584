package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/betbot/dbtrader/internal/benchmark"
	"github.com/betbot/dbtrader/internal/deribit"
	"github.com/betbot/dbtrader/internal/domain"
	"github.com/betbot/dbtrader/internal/infrastructure/websocket"
	"github.com/betbot/dbtrader/internal/services"
	"github.com/pkg/errors"
)

var errQuit = errors.New("quit")

type command struct {
	name  string
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

// repl 把文本命令映射到交易门面的操作
type repl struct {
	svc      *services.TradingService
	endpoint *websocket.Endpoint
	rest     *deribit.RESTClient

	lines <-chan string
	out   io.Writer

	responseWait time.Duration
	lastID       int64
	commands     map[string]command
}

func newREPL(svc *services.TradingService, endpoint *websocket.Endpoint, rest *deribit.RESTClient, lines <-chan string, out io.Writer) *repl {
	r := &repl{
		svc:          svc,
		endpoint:     endpoint,
		rest:         rest,
		lines:        lines,
		out:          out,
		responseWait: 2 * time.Second,
	}
	r.commands = make(map[string]command)
	for _, c := range []command{
		{"help", "", "显示命令列表", r.cmdHelp},
		{"quit", "", "退出", r.cmdQuit},
		{"deribit_connect", "", "连接交易所 WebSocket", r.cmdConnect},
		{"deribit_test", "", "发送 public/get_time", r.cmdTest},
		{"deribit_auth", "", "使用 API 凭证认证", r.cmdAuth},
		{"deribit_show", "", "显示连接信息与会话状态", r.cmdShow},
		{"deribit_order_book", "[instrument] [depth]", "查询订单簿，默认 BTC-PERPETUAL", r.cmdOrderBook},
		{"deribit_positions", "[currency] [kind]", "查询持仓", r.cmdPositions},
		{"deribit_buy", "", "买入（交互式输入订单字段）", r.cmdBuy},
		{"deribit_sell", "", "卖出（交互式输入订单字段）", r.cmdSell},
		{"deribit_edit", "", "修改订单（交互式输入）", r.cmdEdit},
		{"deribit_cancel", "[order_id]", "撤单", r.cmdCancel},
		{"deribit_open_orders", "[kind] [type]", "查询挂单", r.cmdOpenOrders},
		{"deribit_sub", "[channels...]", "订阅频道", r.cmdSubscribe},
		{"deribit_unsub", "", "取消全部订阅", r.cmdUnsubscribe},
		{"deribit_logout", "[invalidate_token=true]", "登出并关闭连接", r.cmdLogout},
		{"deribit_result", "[id]", "显示请求的响应（默认最近一次）", r.cmdResult},
		{"deribit_time", "", "通过 REST 检查本地时钟偏差", r.cmdTime},
		{"deribit_journal", "[n]", "显示最近发送的请求", r.cmdJournal},
	} {
		r.commands[c.name] = c
	}
	return r
}

func (r *repl) sortedCommands() []command {
	out := make([]command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (r *repl) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) prompt() {
	r.printf("%s> ", r.svc.State())
}

// run 读取并执行命令，直到 quit、输入结束或 ctx 取消
func (r *repl) run(ctx context.Context) {
	r.printf("输入 help 查看命令\n")
	for {
		r.prompt()
		line, ok := r.readLine(ctx)
		if !ok {
			r.printf("\n")
			return
		}
		if err := r.exec(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return
			}
			r.printf("%s\n", renderError(err))
		}
	}
}

func (r *repl) readLine(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-r.lines:
		return strings.TrimSpace(line), ok
	}
}

func (r *repl) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	c, ok := r.commands[fields[0]]
	if !ok {
		return errors.Errorf("未知命令 %q，输入 help 查看命令", fields[0])
	}
	return c.run(ctx, fields[1:])
}

// ask 交互式读取一个字段，空输入返回空串
func (r *repl) ask(ctx context.Context, label string) (string, error) {
	r.printf("  %s: ", label)
	line, ok := r.readLine(ctx)
	if !ok {
		return "", errors.New("输入已结束")
	}
	return line, nil
}

func (r *repl) cmdHelp(context.Context, []string) error {
	r.printf("%s", renderHelp(r.sortedCommands()))
	return nil
}

func (r *repl) cmdQuit(context.Context, []string) error {
	return errQuit
}

func (r *repl) cmdConnect(ctx context.Context, _ []string) error {
	if err := r.svc.Connect(ctx); err != nil {
		return err
	}
	r.printf("%s\n", renderOK("已连接 conn=%d", r.svc.Session().ConnID()))
	return nil
}

func (r *repl) cmdTest(ctx context.Context, _ []string) error {
	return r.sendAndShow(ctx, "test", func(ctx context.Context) (int64, error) {
		return r.svc.Test(ctx)
	})
}

func (r *repl) cmdAuth(ctx context.Context, _ []string) error {
	timer := benchmark.Start("auth")
	defer timer.Stop()
	if err := r.svc.Authenticate(benchmark.NewContext(ctx, timer)); err != nil {
		return err
	}
	r.printf("%s\n", renderOK("认证成功"))
	return nil
}

func (r *repl) cmdShow(context.Context, []string) error {
	r.printf("session: %s  state: %s  correlation: %s\n", r.svc.Session().ID(), renderState(r.svc.State()), r.svc.Correlation())
	md, err := r.svc.ShowConnection()
	if err != nil {
		return err
	}
	r.printf("%s\n", renderMetadata(md))
	return nil
}

func (r *repl) cmdOrderBook(ctx context.Context, args []string) error {
	q := domain.OrderBookQuery{Instrument: "BTC-PERPETUAL"}
	if len(args) > 0 {
		q.Instrument = args[0]
	}
	if len(args) > 1 {
		depth, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Errorf("depth 必须是整数: %s", args[1])
		}
		q.Depth = &depth
	}
	return r.sendAndShow(ctx, "order_book", func(ctx context.Context) (int64, error) {
		return r.svc.GetOrderBook(ctx, q)
	})
}

func (r *repl) cmdPositions(ctx context.Context, args []string) error {
	var q domain.PositionsQuery
	if len(args) > 0 {
		q.Currency = domain.Currency(args[0])
	}
	if len(args) > 1 {
		q.Kind = domain.Kind(args[1])
	}
	return r.sendAndShow(ctx, "positions", func(ctx context.Context) (int64, error) {
		return r.svc.GetPositions(ctx, q)
	})
}

func (r *repl) cmdBuy(ctx context.Context, _ []string) error {
	o, err := r.readNewOrder(ctx)
	if err != nil {
		return err
	}
	return r.sendAndShow(ctx, "buy", func(ctx context.Context) (int64, error) {
		return r.svc.Buy(ctx, o)
	})
}

func (r *repl) cmdSell(ctx context.Context, _ []string) error {
	o, err := r.readNewOrder(ctx)
	if err != nil {
		return err
	}
	return r.sendAndShow(ctx, "sell", func(ctx context.Context) (int64, error) {
		return r.svc.Sell(ctx, o)
	})
}

func (r *repl) cmdEdit(ctx context.Context, _ []string) error {
	o, err := r.readEdit(ctx)
	if err != nil {
		return err
	}
	return r.sendAndShow(ctx, "edit", func(ctx context.Context) (int64, error) {
		return r.svc.Edit(ctx, o)
	})
}

func (r *repl) cmdCancel(ctx context.Context, args []string) error {
	var orderID string
	if len(args) > 0 {
		orderID = args[0]
	}
	return r.sendAndShow(ctx, "cancel", func(ctx context.Context) (int64, error) {
		return r.svc.Cancel(ctx, orderID)
	})
}

func (r *repl) cmdOpenOrders(ctx context.Context, args []string) error {
	var q domain.OpenOrdersQuery
	if len(args) > 0 {
		q.Kind = domain.Kind(args[0])
	}
	if len(args) > 1 {
		q.Type = domain.OpenOrderType(args[1])
	}
	return r.sendAndShow(ctx, "open_orders", func(ctx context.Context) (int64, error) {
		return r.svc.GetOpenOrders(ctx, q)
	})
}

func (r *repl) cmdSubscribe(ctx context.Context, args []string) error {
	req := domain.SubscriptionRequest{Channels: args}
	return r.sendAndShow(ctx, "subscribe", func(ctx context.Context) (int64, error) {
		return r.svc.Subscribe(ctx, req)
	})
}

func (r *repl) cmdUnsubscribe(ctx context.Context, _ []string) error {
	return r.sendAndShow(ctx, "unsubscribe_all", func(ctx context.Context) (int64, error) {
		return r.svc.UnsubscribeAll(ctx)
	})
}

func (r *repl) cmdLogout(ctx context.Context, args []string) error {
	req := domain.NewLogoutRequest()
	if len(args) > 0 {
		v, err := strconv.ParseBool(args[0])
		if err != nil {
			return errors.Errorf("invalidate_token 必须是 true/false: %s", args[0])
		}
		req.InvalidateToken = v
	}
	id, err := r.svc.Logout(ctx, req)
	if err != nil {
		return err
	}
	r.printf("%s\n", renderOK("已登出 id=%d", id))
	return nil
}

func (r *repl) cmdResult(_ context.Context, args []string) error {
	id := r.lastID
	if len(args) > 0 {
		v, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return errors.Errorf("id 必须是整数: %s", args[0])
		}
		id = v
	}
	if id == 0 {
		return errors.New("还没有发送过请求")
	}
	resp, ok := r.svc.Result(id)
	if !ok {
		return errors.Errorf("没有 id=%d 的响应（轮询模式或已过期）", id)
	}
	r.printf("%s\n", prettyJSON(resp.Raw))
	return nil
}

func (r *repl) cmdTime(ctx context.Context, _ []string) error {
	skew, err := r.rest.ServerTime(ctx)
	if err != nil {
		return err
	}
	r.printf("server: %s  local: %s  rtt: %v  skew: %v\n",
		skew.ServerTime.Format(time.RFC3339Nano), skew.LocalTime.Format(time.RFC3339Nano), skew.RoundTrip, skew.Skew)
	return nil
}

func (r *repl) cmdJournal(ctx context.Context, args []string) error {
	n := 10
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return errors.Errorf("n 必须是整数: %s", args[0])
		}
		n = v
	}
	entries, err := r.svc.RecentRequests(ctx, n)
	if err != nil {
		return err
	}
	for _, e := range entries {
		status := okStyle.Render("ok")
		if !e.OK {
			status = errStyle.Render("failed: " + e.Error)
		}
		params, _ := json.Marshal(e.Params)
		r.printf("%s id=%d conn=%d %s %s %s\n", e.SentAt.Local().Format("15:04:05.000"), e.RequestID, e.ConnID, e.Method, params, status)
	}
	return nil
}

// sendAndShow 执行一次发送并在短时间内等待、打印响应
func (r *repl) sendAndShow(ctx context.Context, name string, send func(ctx context.Context) (int64, error)) error {
	timer := benchmark.Start(name)
	defer timer.Stop()
	ctx = benchmark.NewContext(ctx, timer)

	id, err := send(ctx)
	if err != nil {
		return err
	}
	r.lastID = id
	r.printf("%s\n", renderOK("%s 已发送 id=%d", name, id))

	connID := r.svc.Session().ConnID()
	deadline := time.Now().Add(r.responseWait)
	for time.Now().Before(deadline) {
		if resp, ok := r.svc.Result(id); ok {
			timer.Mark("response")
			r.printf("%s\n", prettyJSON(resp.Raw))
			return nil
		}
		if r.svc.Correlation() == services.CorrelateByPolling {
			if r.endpoint.WaitMessage(ctx, connID, time.Until(deadline)) {
				if msg, ok := r.endpoint.LatestMessage(connID); ok {
					r.printf("%s\n", msg)
				}
			}
			return nil
		}
		if !r.endpoint.WaitMessage(ctx, connID, time.Until(deadline)) {
			break
		}
	}
	if resp, ok := r.svc.Result(id); ok {
		timer.Mark("response")
		r.printf("%s\n", prettyJSON(resp.Raw))
		return nil
	}
	r.printf("%s\n", dimStyle.Render("（暂未收到响应，可稍后使用 deribit_result 查看）"))
	return nil
}

func prettyJSON(raw string) string {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return raw
	}
	return string(b)
}
