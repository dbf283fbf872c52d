// Package cmd implements the wsdlc CLI: root command, flags, and
// config/logging bootstrap, in the shape pyneda-sukyan and mockd lay
// out a cobra+viper command tree.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soapkit/wsdlc/fetch"
	"github.com/soapkit/wsdlc/pipeline"
)

// Version is injected at build time via -ldflags.
var Version = "tip"

var (
	cfgFile     string
	src         string
	dst         string
	pkgName     string
	insecure    bool
	timeout     time.Duration
	debugLog    bool
	prettyLog   bool
	namespaces  []string
	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:   "wsdlc",
	Short: "wsdlc generates a Go SOAP client from a WSDL document",
	Long: `wsdlc reads a WSDL 1.1 document (and the XSD schemas it imports),
resolves its type graph, and emits a Go package implementing a typed
client for every document/literal binding it describes.

Configuration can be provided via flags, environment variables prefixed
WSDLC_, or a config file (default $HOME/.wsdlc.yaml).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runGenerate,
}

// Execute runs the root command; it is called once from main.main. Per
// §6, a successful run exits 0, a parse/resolve error exits 1, and an
// I/O error (fetching the WSDL, writing the output file) exits 2.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var ioErr *fetch.IOError
	if errors.As(err, &ioErr) {
		return 2
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return 2
	}
	return 1
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.wsdlc.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "enable debug-level logging")
	rootCmd.PersistentFlags().BoolVar(&prettyLog, "pretty", true, "use console-formatted logs instead of JSON")

	rootCmd.Flags().StringVarP(&src, "input", "i", "", "input WSDL file, URL, or '-' for stdin")
	rootCmd.Flags().StringVarP(&dst, "output", "o", "", "output file, or '-'/unset for stdout")
	rootCmd.Flags().StringVar(&pkgName, "package", "client", "Go package name for the generated source")
	rootCmd.Flags().BoolVar(&insecure, "insecure", false, "accept invalid HTTPS certificates when fetching the WSDL")
	rootCmd.Flags().BoolVar(&insecure, "yolo", false, "alias for --insecure")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "HTTP client timeout for fetching the WSDL and its imports (0 = no timeout)")
	rootCmd.Flags().StringArrayVar(&namespaces, "namespace", nil, "map a schema namespace to an identifier prefix, as uri=prefix (repeatable)")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print the version and exit")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigName(".wsdlc")
		}
	}
	viper.SetEnvPrefix("wsdlc")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("file", viper.ConfigFileUsed()).Msg("using config file")
	}
}

func initLogging() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debugLog || viper.GetBool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if prettyLog {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func runGenerate(c *cobra.Command, args []string) error {
	if showVersion {
		fmt.Printf("wsdlc %s\n", Version)
		return nil
	}

	nsPkg, err := resolveNamespaces(namespaces)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Src:              src,
		Insecure:         insecure || viper.GetBool("insecure"),
		Timeout:          resolveTimeout(),
		Package:          pkgName,
		NamespacePackage: nsPkg,
	}

	if dst != "" && dst != "-" {
		f, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		return pipeline.Generate(f, opts)
	}
	return pipeline.Generate(os.Stdout, opts)
}

// resolveTimeout follows pyneda-sukyan's initConfig pattern of letting
// viper supply a default that flags override: the --timeout flag wins
// when set, otherwise a config-file/env "timeout" value is used.
func resolveTimeout() time.Duration {
	if timeout > 0 {
		return timeout
	}
	return viper.GetDuration("timeout")
}

// resolveNamespaces merges the repeatable --namespace uri=package flag
// with a "namespace" map the config file may supply; flag entries take
// precedence over config entries for the same namespace URI.
func resolveNamespaces(raw []string) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range viper.GetStringMapString("namespace") {
		out[k] = v
	}
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid --namespace %q, want uri=package", kv)
		}
		out[parts[0]] = parts[1]
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
