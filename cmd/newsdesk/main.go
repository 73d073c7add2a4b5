// Command newsdesk は金融ニュースを複数の取得元から集約して配信する。
//
// サブコマンド:
//
//	serve        APIサーバーを起動する（既定）
//	worker       キャッシュを定期的に温める
//	fetch [sec]  取得パイプラインを1回実行し、結果をJSONで出力する
//	healthcheck  /health を確認する（Dockerヘルスチェック用）
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/newsdesk/internal/app"
)

func main() {
	// fetchの出力と混ざらないよう、ログは標準エラー出力に書き出す
	if err := app.Run(os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
