package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"engdoc-auditor/api/internal/cli"
)

var (
	version = "v0.1.0" // Overwritten at build time
)

func main() {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	klog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "engdoc",
		Short: "AI-powered normative control of engineering drawings",
		Long: `engdoc checks project documentation (ОВ, ВК, ЭОМ) against ГОСТ/СПДС
with a generative model and reports errors and warnings per sheet.`,
		SilenceUsage: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)
	rootCmd.PersistentFlags().StringVar(&cli.ConfigPath, "config", "", "YAML config file (env ENGDOC_CONFIG)")

	rootCmd.AddCommand(
		cli.NewServeCmd(),
		cli.NewBotCmd(),
		cli.NewCheckCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("engdoc version %s\n", version)
		},
	}
}
