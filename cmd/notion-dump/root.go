/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"strconv"

	"github.com/fatih/structs"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

const defaultConfig = "~/.config/notion-dump.yaml"

var (
	// Store the result of binding cobra flags
	Config  string
	Debug   bool
	Verbose bool
	LogFile string

	// Command to run to retrieve the Notion integration secret
	AuthTokenCmd []string

	DatabaseID    string
	LocalStore    string
	IndexFilename string

	ParsedConfig YamlConfig
)

// Build the cobra command that handles our command line tool.
var rootCmd = &cobra.Command{
	Use:   "notion-dump",
	Short: "Mirror a Notion database into a Hugo site",
	Long: `
Write your blog in Notion, publish it with Hugo.  This tool copies every published page of a
Notion database (and the sub-pages beneath them) into Markdown files with front matter, along with
the images they use.  Only pages that changed since the last run are fetched again.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(cmd); err != nil {
			return fmt.Errorf("notion-dump: failed to initialise config: %w", err)
		}

		if err := setupLogging(); err != nil {
			return fmt.Errorf("notion-dump: failed to set up logging: %w", err)
		}
		slog.Debug("config loaded", "path", Config)

		return nil
	},
}

func init() {
	// Define cobra flags, the default value has the lowest (least significant) precedence
	rootCmd.PersistentFlags().StringVar(&Config, "config", "", "config file location (default: "+defaultConfig+", respects NOTION_DUMP_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "display debug output")
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "v", false, "list every page in the summary")
	rootCmd.PersistentFlags().StringVar(&LogFile, "log-file", "", "write logs to this file (rotated) instead of stderr")
	rootCmd.PersistentFlags().StringSliceVar(&AuthTokenCmd, "auth-token-cmd", []string{}, "shell command to retrieve the Notion integration secret")
	rootCmd.PersistentFlags().StringVar(&DatabaseID, "database-id", "", "id of the Notion database holding your pages")
	rootCmd.PersistentFlags().StringVar(&LocalStore, "store", "", "root of the Hugo site to write into")
	rootCmd.PersistentFlags().StringVar(&IndexFilename, "index-filename", "_index.md", "file name for pages that have sub-pages")
}

// configExplicit reports whether the user pointed us at a config file, as opposed to us trying
// the default location.
var configExplicit bool

func initializeConfig(cmd *cobra.Command) error {
	configExplicit = Config != ""
	if Config == "" {
		// Did the user provide an ENV?
		envConfig := os.Getenv("NOTION_DUMP_CONFIG")
		if envConfig != "" {
			Config = envConfig
			configExplicit = true
		} else {
			// As fallback, search for config in home XDG-ish directory
			Config = defaultConfig
		}
	}
	config, err := homedir.Expand(Config)
	if err != nil {
		return fmt.Errorf("notion-dump: unable to expand homedir: %w", err)
	}
	Config = config

	if _, err := os.Stat(Config); errors.Is(err, os.ErrNotExist) {
		if !configExplicit {
			// Everything can be given as flags, so no config file is fine.
			return nil
		}
		fmt.Printf("Couldn't read config file %s, does it exist?  Override with --config.\n", Config)
		return fmt.Errorf("notion-dump: specified config file does not exist: %w", err)
	}

	yamlFile, err := os.ReadFile(Config)
	if err != nil {
		return fmt.Errorf("notion-dump: error reading config file: %w", err)
	}

	// I'd like to bark if a user sets a flag we don't recognise:
	if err := yaml.UnmarshalStrict(yamlFile, &ParsedConfig); err != nil {
		return fmt.Errorf("notion-dump: issue parsing config file: %w", err)
	}

	if err := bindFlags(cmd, ParsedConfig); err != nil {
		return fmt.Errorf("notion-dump: failed to bind flags: %w", err)
	}

	return nil
}

type YamlConfig struct {
	Force           *bool `yaml:"force"`
	WithVCR         *bool `yaml:"with-vcr"`
	ServerMode      *bool `yaml:"server"`
	StrictImageURLs *bool `yaml:"strict-image-urls"`
	WriteMarkdown   *bool `yaml:"write-markdown"`
	Verbose         *bool `yaml:"verbose"`

	Concurrency *int `yaml:"concurrency"`

	DatabaseID        string `yaml:"database-id"`
	StorePath         string `yaml:"store"`
	ContentDir        string `yaml:"content-dir"`
	StaticDir         string `yaml:"static-dir"`
	CacheDB           string `yaml:"cache-db"`
	Author            string `yaml:"author"`
	UTCOffset         string `yaml:"utc-offset"`
	FrontMatterFormat string `yaml:"frontmatter-format"`
	IndexFilename     string `yaml:"index-filename"`
	LogFile           string `yaml:"log-file"`

	AuthTokenCmd       []string `yaml:"auth-token-cmd"`
	PostDownloadCmd    []string `yaml:"post-download-cmd"`
	CustomProperties   []string `yaml:"custom-properties"`
	RequiredProperties []string `yaml:"required-properties"`
}

// Bind each unset cobra flag to its value from the config file
func bindFlags(cmd *cobra.Command, v YamlConfig) error {
	for _, field := range structs.Fields(v) {
		key := field.Tag("yaml")
		if key == "" {
			return fmt.Errorf("notion-dump: could not retrieve struct tag 'yaml'")
		}
		if flag := cmd.Flag(key); flag == nil {
			// the flag is unknown.  but that can legitimately happen if you're running e.g. `list
			// pages` which has no `force` flag but your YAML file does define it...
			continue
		}
		if cmd.Flags().Changed(key) {
			continue
		}

		var err error
		switch field.Kind() {
		case reflect.Ptr:
			switch p := field.Value().(type) {
			case *bool:
				if p != nil {
					err = cmd.Flags().Set(key, strconv.FormatBool(*p))
				}
			case *int:
				if p != nil {
					err = cmd.Flags().Set(key, strconv.Itoa(*p))
				}
			default:
				return fmt.Errorf("notion-dump: found unrecognised field: %+v", field)
			}

		case reflect.String:
			s, ok := field.Value().(string)
			if !ok {
				return fmt.Errorf("notion-dump: found unrecognised field: %+v", field)
			}
			if s != "" {
				err = cmd.Flags().Set(key, s)
			}

		case reflect.Slice:
			ss, ok := field.Value().([]string)
			if !ok {
				return fmt.Errorf("notion-dump: found unrecognised field: %+v", field)
			}
			for _, s := range ss {
				// yes, repeatedly calling Set() appends to the slice...
				if err = cmd.Flags().Set(key, s); err != nil {
					break
				}
			}

		default:
			return fmt.Errorf("notion-dump: found unrecognised field: %+v", field)
		}

		if err != nil {
			return fmt.Errorf("notion-dump: config key %s: %w", key, err)
		}
	}

	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return fmt.Errorf("notion-dump: execution error: %w", err)
	}

	return nil
}
