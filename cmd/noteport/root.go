package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/fatih/structs"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var (
	// Store the result of binding cobra flags
	Config string
	Debug  bool

	// Command to run to retrieve the note server's API token
	AuthTokenCmd []string

	ServerURL string

	ParsedConfig YamlConfig
)

// Build the cobra command that handles our command line tool.
var rootCmd = &cobra.Command{
	Use:   "noteport",
	Short: "Move notes between a note server and local formats",
	Long: `
Import Markdown vaults, zipped page archives, plain directories and git working trees into a note
server, and export the server's note tree back out to any of them.
`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// You can bind cobra and config in a few locations, but PersistentPreRunE on the root
		// command works well
		if err := initializeConfig(cmd); err != nil {
			return fmt.Errorf("noteport: failed to initialise config: %w", err)
		}
		return nil
	},
}

func init() {
	// Define cobra flags, the default value has the lowest (least significant) precedence
	rootCmd.PersistentFlags().StringVar(&Config, "config", "", "config file location (default: ~/.config/noteport.yaml, respects NOTEPORT_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "display debug output")
	rootCmd.PersistentFlags().StringSliceVar(&AuthTokenCmd, "auth-token-cmd", []string{}, "shell command to retrieve the note server API token")
	rootCmd.PersistentFlags().StringVar(&ServerURL, "server", "", "note server base URL, e.g. http://localhost:37840")
}

func initializeConfig(cmd *cobra.Command) error {
	if Config == "" {
		// Did the user provide an ENV?
		envConfig := os.Getenv("NOTEPORT_CONFIG")
		if envConfig != "" {
			Config = envConfig
		} else {
			// As fallback, search for config in home XDG-ish directory
			Config = "~/.config/noteport.yaml"
		}
	}
	config, err := homedir.Expand(Config)
	if err != nil {
		return fmt.Errorf("noteport: unable to expand homedir: %w", err)
	}
	Config = config

	if _, err := os.Stat(Config); errors.Is(err, os.ErrNotExist) {
		// No config file is fine; flags alone can carry a run.
		return nil
	}

	yamlFile, err := os.ReadFile(Config)
	if err != nil {
		return fmt.Errorf("noteport: error reading config file: %w", err)
	}

	// I'd like to bark if a user sets a flag we don't recognise:
	if err := yaml.UnmarshalStrict(yamlFile, &ParsedConfig); err != nil {
		return fmt.Errorf("noteport: issue parsing config file: %w", err)
	}

	if err := bindFlags(cmd, ParsedConfig); err != nil {
		return fmt.Errorf("noteport: failed to bind flags: %w", err)
	}

	return nil
}

type YamlConfig struct {
	DryRun             *bool `yaml:"dry-run"`
	WithVCR            *bool `yaml:"with-vcr"`
	PreserveStructure  *bool `yaml:"preserve-structure"`
	IncludeAttachments *bool `yaml:"with-attachments"`
	Recursive          *bool `yaml:"recursive"`
	AutoCommit         *bool `yaml:"auto-commit"`

	ServerURL    string   `yaml:"server"`
	AuthTokenCmd []string `yaml:"auth-token-cmd"`
	Parent       string   `yaml:"parent"`
	Duplicates   string   `yaml:"duplicates"`
	WikiLinks    string   `yaml:"wiki-links"`
	BlockMode    string   `yaml:"block-mode"`
	Patterns     []string `yaml:"patterns"`

	GitBranch      string `yaml:"git-branch"`
	GitAuthorName  string `yaml:"git-author-name"`
	GitAuthorEmail string `yaml:"git-author-email"`
	GitMessage     string `yaml:"git-message"`
}

// Bind each cobra flag to its associated configuration file entry
func bindFlags(cmd *cobra.Command, v YamlConfig) error {
	for _, field := range structs.Fields(v) {
		key := field.Tag("yaml")
		if key == "" {
			return fmt.Errorf("noteport: could not retrieve struct tag 'yaml'")
		}
		if flag := cmd.Flag(key); flag == nil {
			// hmm... the flag is unknown.  but that can legitimately happen if you're running
			// e.g. `formats` which has no `wiki-links` flag but your YAML file does define it...
			continue
		}
		if !cmd.Flags().Changed(key) {
			switch field.Kind() {
			case reflect.Ptr:
				// err, this is crappy, but i know YamlConfig only uses pointers for bools.....
				b, ok := field.Value().(*bool)
				if !ok {
					return fmt.Errorf("noteport: found unrecognised field: %+v", field)
				}
				if b != nil {
					cmd.Flags().Set(key, fmt.Sprintf("%v", *b))
				}

			case reflect.String:
				s, ok := field.Value().(string)
				if !ok {
					return fmt.Errorf("noteport: found unrecognised field: %+v", field)
				}
				if s != "" {
					cmd.Flags().Set(key, s)
				}

			case reflect.Slice:
				ss, ok := field.Value().([]string)
				if !ok {
					return fmt.Errorf("noteport: found unrecognised field: %+v", field)
				}
				for _, s := range ss {
					// yes, repeatedly calling Set() appends to the slice...
					cmd.Flags().Set(key, s)
				}

			default:
				return fmt.Errorf("noteport: found unrecognised field: %+v", field)
			}
		}
	}

	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Flags are only available after (or inside, presumably) the .Execute() thing.
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("noteport: execution error: %w", err)
	}

	return nil
}
