package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandRun は全テナントの同期ランを1回実行することを示す。
	CommandRun Command = "run"
	// CommandAccount は単一アカウントのプロフィールのみ同期することを示す。
	CommandAccount Command = "account"
	// CommandWorker はスケジュール実行のワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandRunを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandRun
	}

	switch args[0] {
	case "run":
		return CommandRun
	case "account":
		return CommandAccount
	case "worker":
		return CommandWorker
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandRun
	}
}
