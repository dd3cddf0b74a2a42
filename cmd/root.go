/*
Package cmd implements the agentdeck command-line interface. It serves the
agent catalogue over HTTP and offers local harnesses to inspect and run the
agents from a terminal.
*/
package cmd

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/agentdeck/pkg/logging"
)

/*
Embed a mini filesystem into the binary to hold the default config file.
This will be written to the home directory of the user running the service,
which allows a developer to easily override the config file.
*/
//go:embed cfg/*
var embedded embed.FS

var (
	projectName = "agentdeck"
	cfgFile     string

	rootCmd = &cobra.Command{
		Use:   "agentdeck",
		Short: "Serve and run a catalogue of tool-using LLM agents",
		Long:  longRoot,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Close()
		},
	}
)

/*
wellKnownEnv maps config keys onto the environment variables deployments
already set, next to the AGENTDECK_ prefixed ones.
*/
var wellKnownEnv = map[string][]string{
	"server.session_service_uri":    {"SESSION_SERVICE_URI"},
	"server.port":                   {"PORT"},
	"server.auth.secret":            {"AUTH_SECRET"},
	"models.fast":                   {"FAST_MODEL"},
	"models.reasoning":              {"REASONING_MODEL"},
	"models.image":                  {"IMAGE_MODEL"},
	"providers.google_api_key":      {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"providers.openai_api_key":      {"OPENAI_API_KEY"},
	"providers.anthropic_api_key":   {"ANTHROPIC_API_KEY"},
	"providers.openrouter_api_key":  {"OPENROUTER_API_KEY"},
	"providers.openrouter_base_url": {"OPENROUTER_BASE_URL"},
	"providers.deepseek_api_key":    {"DEEPSEEK_API_KEY"},
	"providers.cohere_api_key":      {"COHERE_API_KEY"},
	"search.exa_api_key":            {"EXA_API_KEY"},
	"search.tavily_api_key":         {"TAVILY_API_KEY"},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yml",
		"config file (default is $HOME/."+projectName+"/config.yml)",
	)
}

/*
initConfig writes the default config file to the user's home directory if
it doesn't exist, reads it, and layers .env and the environment on top.
*/
func initConfig() {
	var err error

	if err = godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to load .env", "error", err)
	}

	if err = writeConfig(); err != nil {
		log.Fatal("failed to write config", "error", err)
	}

	home, _ := os.UserHomeDir()

	viper.SetConfigType("yml")

	if strings.ContainsRune(cfgFile, os.PathSeparator) {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(strings.TrimSuffix(cfgFile, ".yml"))
		viper.AddConfigPath(".")
		viper.AddConfigPath(home + "/." + projectName)
	}

	viper.SetEnvPrefix("AGENTDECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, names := range wellKnownEnv {
		_ = viper.BindEnv(append([]string{key}, names...)...)
	}

	if err = viper.ReadInConfig(); err != nil {
		log.Fatal("failed to read config", "error", err)
	}

	if err = logging.Init(logging.Config{
		Level:  viper.GetString("logging.level"),
		Format: viper.GetString("logging.format"),
		File:   viper.GetString("logging.file"),
		Caller: viper.GetBool("logging.caller"),
	}); err != nil {
		log.Fatal("failed to set up logging", "error", err)
	}
}

/*
writeConfig writes the default config file to the user's home directory.
*/
func writeConfig() (err error) {
	var (
		home, _ = os.UserHomeDir()
		fh      fs.File
		buf     bytes.Buffer
	)

	configDir := home + "/." + projectName

	if !CheckFileExists(configDir) {
		if err = os.MkdirAll(configDir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	fullPath := configDir + "/config.yml"

	if CheckFileExists(fullPath) {
		return nil
	}

	if fh, err = embedded.Open("cfg/config.yml"); err != nil {
		return fmt.Errorf("failed to open embedded config file: %w", err)
	}

	defer fh.Close()

	if _, err = io.Copy(&buf, fh); err != nil {
		return fmt.Errorf("failed to read embedded config file: %w", err)
	}

	if err = os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Info("wrote config file", "path", fullPath)
	return nil
}

func CheckFileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return !errors.Is(err, os.ErrNotExist)
}

var longRoot = `
agentdeck hosts a catalogue of LLM agents (web search, maps, MCP backed
research agents, image generation and a resume screener) behind an HTTP API,
and runs them from the terminal for quick experiments.

Configuration is read from ~/.agentdeck/config.yml, overridden by AGENTDECK_*
environment variables and the usual provider keys (GOOGLE_API_KEY, ...).
`
