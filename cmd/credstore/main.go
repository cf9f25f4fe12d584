// credstore 将 API 凭证导入加密的 badger 存储，供 deribit-cli 通过 DBT_SECRET_DB 读取。
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/betbot/dbtrader/pkg/config"
	"github.com/betbot/dbtrader/pkg/secretstore"
	"github.com/joho/godotenv"
)

func main() {
	var (
		inPath    = flag.String("in", "api_key.json", "input file: api_key.json or a .env with DERIBIT_CLIENT_ID/DERIBIT_CLIENT_SECRET")
		dbPath    = flag.String("badger", getenv("DBT_SECRET_DB", "data/secrets.badger"), "badger secrets db path")
		secretKey = flag.String("secret-key", getenv("DBT_SECRET_KEY", ""), "badger encryption key (32 bytes base64/hex)")
		check     = flag.Bool("check", false, "only verify that the store contains credentials")
	)
	flag.Parse()

	keyBytes, err := secretstore.ParseKey(*secretKey)
	if err != nil {
		fatal(err)
	}
	if keyBytes == nil {
		fatal(fmt.Errorf("secret key is required: set DBT_SECRET_KEY or pass -secret-key"))
	}

	ss, err := secretstore.Open(secretstore.OpenOptions{
		Path:          *dbPath,
		EncryptionKey: keyBytes,
		ReadOnly:      *check,
	})
	if err != nil {
		fatal(err)
	}
	defer ss.Close()

	if *check {
		id, _, found, err := ss.GetCredentials()
		if err != nil {
			fatal(err)
		}
		if !found {
			fatal(fmt.Errorf("%s 中没有凭证", *dbPath))
		}
		fmt.Fprintf(os.Stderr, "✅ 凭证存在 client_id=%s\n", id)
		return
	}

	creds, err := readCredentials(*inPath)
	if err != nil {
		fatal(err)
	}
	if err := ss.SetCredentials(creds.ClientID, creds.ClientSecret); err != nil {
		fatal(err)
	}

	fmt.Fprintf(os.Stderr, "已导入 client_id=%s 到 badger：%s\n", creds.ClientID, *dbPath)
}

func readCredentials(path string) (*config.Credentials, error) {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return config.LoadCredentialsFile(path)
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, err
	}
	creds := &config.Credentials{
		ClientID:     strings.TrimSpace(env["DERIBIT_CLIENT_ID"]),
		ClientSecret: strings.TrimSpace(env["DERIBIT_CLIENT_SECRET"]),
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%s 缺少 DERIBIT_CLIENT_ID 或 DERIBIT_CLIENT_SECRET", path)
	}
	return creds, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
