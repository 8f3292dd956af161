package main

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/restarate/loadgen/internal/api"
	"github.com/example/restarate/loadgen/internal/client"
	"github.com/example/restarate/loadgen/internal/contract"
)

var errVerificationFailed = errors.New("contract verification failed")

func newVerifyCmd(a *app) *cobra.Command {
	var (
		only string
		list bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a running service against the HTTP contract",
		Long: `Runs the contract scenarios against the target. Each scenario starts from
an empty service: the resources it touches are purged after it finishes,
so point this at a disposable instance only.`,
		Example: `  loadgen verify --host http://localhost:8080
  loadgen verify --only '^reviews/'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts []contract.Option
			if only != "" {
				re, err := regexp.Compile(only)
				if err != nil {
					return fmt.Errorf("invalid --only pattern: %w", err)
				}
				opts = append(opts, contract.WithFilter(re))
			}

			cfg, err := a.load()
			if err != nil {
				return err
			}
			log, err := a.logger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			c, err := client.NewClient(cfg.Target)
			if err != nil {
				return err
			}
			defer c.Close()

			suite := contract.NewSuite(api.New(c), append(opts, contract.WithLogger(log))...)
			if list {
				for _, sc := range suite.Scenarios() {
					fmt.Fprintln(cmd.OutOrStdout(), sc.Name)
				}
				return nil
			}

			log.Info("verifying contract",
				zap.String("target", c.BaseURL()),
				zap.Int("scenarios", len(suite.Scenarios())))
			report := suite.Run(cmd.Context())
			report.Print(cmd.OutOrStdout())
			if !report.OK() {
				return fmt.Errorf("%w: %d of %d scenarios", errVerificationFailed, report.Failed(), len(report.Results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&only, "only", "", "Run only scenarios whose name matches this regexp")
	cmd.Flags().BoolVar(&list, "list", false, "List scenario names and exit")
	return cmd
}
