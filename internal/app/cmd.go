package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はキャッシュを定期的に温めるワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandFetch は取得パイプラインを1回実行し、結果をJSONで標準出力に書き出す。
	CommandFetch Command = "fetch"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "serve":
		return CommandServe
	case "fetch":
		return CommandFetch
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// fetchSection はfetchサブコマンドの対象セクションを返す。
// 指定がない場合は空文字列（全セクション）になる。
func fetchSection(args []string) string {
	if len(args) < 2 {
		return ""
	}
	return args[1]
}
