// File: cmd/root.go
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/blackvectorops/ytghost/internal/config"
	"github.com/blackvectorops/ytghost/internal/extract"
	"github.com/blackvectorops/ytghost/internal/observability"
	"github.com/blackvectorops/ytghost/internal/session"
)

var (
	cfgFile string

	flagURL        string
	flagAction     string
	flagOutput     string
	flagFormat     string
	flagQuality    string
	flagHeadless   bool
	flagAntiDetect bool
	flagAdvanced   bool
	flagRotation   bool
)

// rootCmd represents the base command when called without any subcommands.
// All diagnostics go to stderr; stdout carries exactly one JSON object.
var rootCmd = &cobra.Command{
	Use:           "ytghost",
	Short:         "Anti-detection video metadata extraction and download.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(); err != nil {
			basicLogger, _ := zap.NewDevelopment()
			basicLogger.Error("Failed to initialize configuration", zap.Error(err))
			return fmt.Errorf("failed to initialize configuration: %w", err)
		}

		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "ytghost"})
			return fmt.Errorf("invalid configuration: %w", err)
		}

		observability.InitializeLogger(cfg.Logger)
		logger := observability.GetLogger()
		defer observability.Sync()
		logger.Info("Starting ytghost", zap.String("version", Version), zap.String("action", flagAction))

		return run(cmd.Context(), cfg, logger)
	},
}

// run owns the session lifecycle for a single invocation.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	switch flagAction {
	case "info", "download":
	default:
		return fmt.Errorf("unknown action %q (expected info or download)", flagAction)
	}
	if flagAction == "download" && flagOutput == "" {
		return errors.New("--output is required for the download action")
	}
	if flagFormat != "mp3" && flagFormat != "mp4" {
		return fmt.Errorf("unknown format %q (expected mp3 or mp4)", flagFormat)
	}

	engine := session.New(cfg, logger)
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("browser session failed to start: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("Session close reported an error", zap.Error(err))
		}
	}()

	switch flagAction {
	case "info":
		info, err := engine.GetInfo(ctx, flagURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A per-video failure is a structured result, not a process
			// failure.
			return emit(errorPayload{Error: err.Error()})
		}
		return emit(info)

	case "download":
		outcome, err := engine.Download(ctx, session.DownloadRequest{
			URL:        flagURL,
			OutputPath: flagOutput,
			Format:     flagFormat,
			Quality:    flagQuality,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			payload := errorPayload{Error: err.Error()}
			if outcome.Info.ID != "" {
				payload.VideoInfo = &outcome.Info
			}
			return emit(payload)
		}
		return emit(downloadPayload{
			Success:    true,
			VideoInfo:  outcome.Info,
			OutputPath: outcome.OutputPath,
		})
	}
	return nil
}

type errorPayload struct {
	Error     string          `json:"error"`
	VideoInfo *extract.Result `json:"video_info,omitempty"`
}

type downloadPayload struct {
	Success    bool           `json:"success"`
	VideoInfo  extract.Result `json:"video_info"`
	OutputPath string         `json:"output_path"`
}

// emit writes the single result object to stdout.
func emit(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It accepts a context passed from main.go for graceful
// shutdown.
func Execute(ctx context.Context) error {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			if ctx.Err() == nil {
				logger.Error("Command execution failed", zap.Error(err))
			}
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")

	rootCmd.Flags().StringVar(&flagURL, "url", "", "video URL to operate on")
	rootCmd.Flags().StringVar(&flagAction, "action", "info", "action to perform: info or download")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output path for downloads")
	rootCmd.Flags().StringVar(&flagFormat, "format", "mp3", "download format: mp3 or mp4")
	rootCmd.Flags().StringVar(&flagQuality, "quality", "192", "audio bitrate (mp3) or max height (mp4)")
	rootCmd.Flags().BoolVar(&flagHeadless, "headless", true, "run the browser headless")
	rootCmd.Flags().BoolVar(&flagAntiDetect, "anti-detection", false, "enable the anti-detection layers")
	rootCmd.Flags().BoolVar(&flagAdvanced, "advanced-evasion", false, "enable the advanced fingerprint evasions (implies --anti-detection)")
	rootCmd.Flags().BoolVar(&flagRotation, "continuous-rotation", false, "rotate identity continuously in the background (implies --anti-detection)")
	_ = rootCmd.MarkFlagRequired("url")

	rootCmd.AddCommand(versionCmd)
}

// initializeConfig reads in config file and ENV variables if set. CLI flags
// take precedence over both.
func initializeConfig() error {
	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("YTGHOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; defaults and env cover everything.
	}

	// Flags override file and environment values.
	if f := rootCmd.Flags().Lookup("headless"); f != nil && f.Changed {
		v.Set("browser.headless", flagHeadless)
	}
	if f := rootCmd.Flags().Lookup("anti-detection"); f != nil && f.Changed {
		v.Set("anti_detect.enabled", flagAntiDetect)
	}
	if f := rootCmd.Flags().Lookup("advanced-evasion"); f != nil && f.Changed {
		v.Set("anti_detect.advanced_evasion", flagAdvanced)
	}
	if f := rootCmd.Flags().Lookup("continuous-rotation"); f != nil && f.Changed {
		v.Set("anti_detect.continuous_rotation", flagRotation)
	}
	return nil
}
