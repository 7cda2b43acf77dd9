package app

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// defaultAuditLimit はauditサブコマンドの既定表示件数。
const defaultAuditLimit = 20

// NewRootCommand はCLIのルートコマンドを生成する。
// サブコマンド省略時はserveとして起動する。
func NewRootCommand(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "chabakapro-admin",
		Short:         "ChabakaPro 管理画面サーバー",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithConfig(cmd, w, "serve", runServe)
		},
	}
	root.SetOut(w)
	root.SetErr(w)

	root.AddCommand(
		newServeCommand(w),
		newWorkerCommand(w),
		newMigrateCommand(w),
		newHealthcheckCommand(),
		newAuditCommand(w),
	)
	return root
}

func newServeCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "APIサーバーを起動する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithConfig(cmd, w, "serve", runServe)
		},
	}
}

func newWorkerCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "期限切れセッションと古い監査ログを定期削除する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithConfig(cmd, w, "worker", runWorker)
		},
	}
}

// newMigrateCommand はmigrateコマンドを生成する。
// サブコマンド省略時はupとして扱う。
func newMigrateCommand(w io.Writer) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "データベースマイグレーションを実行する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithConfig(cmd, w, "migrate", runMigrateUp)
		},
	}

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "未適用のマイグレーションを全て適用する",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWithConfig(cmd, w, "migrate up", runMigrateUp)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "全てのマイグレーションを取り消す",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWithConfig(cmd, w, "migrate down", runMigrateDown)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "適用済みのマイグレーションバージョンを表示する",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWithConfig(cmd, w, "migrate version", func(ctx context.Context, env *runEnv) error {
					return runMigrateVersion(ctx, env, cmd.OutOrStdout())
				})
			},
		},
	)
	return migrateCmd
}

// newHealthcheckCommand はdistroless環境でのDockerヘルスチェック用コマンドを生成する。
// 設定の読み込みは行わない。
func newHealthcheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "稼働中のサーバーの /health を確認する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck(cmd.Context(), healthcheckBaseURL())
		},
	}
}

func newAuditCommand(w io.Writer) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "直近の書き込み操作の監査ログを表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithConfig(cmd, w, "audit", func(ctx context.Context, env *runEnv) error {
				return runAudit(ctx, env, cmd.OutOrStdout(), limit)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultAuditLimit, "表示する件数")
	return cmd
}
