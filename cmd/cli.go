package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliFlags 子命令共享的参数
type cliFlags struct {
	config string
	pretty bool
}

// addCLIFlags 注册 -c 与 --pretty
func addCLIFlags(cmd *cobra.Command, f *cliFlags) {
	cmd.PersistentFlags().StringVarP(&f.config, "config", "c", "", "config file")
	cmd.PersistentFlags().BoolVar(&f.pretty, "pretty", true, "indent json output")
}

// withContainer 打开容器执行 fn，结束后优雅关闭
// Ctrl+C 会取消 fn 的 context
func withContainer(f *cliFlags, fn func(ctx context.Context, c *container) error) error {
	path, err := resolveConfigPath(f.config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := openContainer(ctx, path, "release")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(context.Background()); cerr != nil {
			bootstrapLogger.Warn("container close", zap.Error(cerr))
		}
	}()

	return fn(ctx, c)
}

// printJSON 输出 JSON 到 stdout
func printJSON(f *cliFlags, v any) error {
	var (
		out []byte
		err error
	)
	if f.pretty {
		out, err = sonic.ConfigStd.MarshalIndent(v, "", "  ")
	} else {
		out, err = sonic.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}
