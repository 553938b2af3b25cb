package cmd

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/cv-screener/internal/analysis"
	"github.com/spigell/cv-screener/internal/candidates"
	"github.com/spigell/cv-screener/internal/server"
	"github.com/spigell/cv-screener/internal/store"
)

const (
	app       = "cv-screener"
	envPrefix = "CV_SCREENER"
	dotEnv    = ".env"
)

type Config struct {
	Store      store.Config     `mapstructure:"store"`
	Candidates CandidatesConfig `mapstructure:"candidates"`
	AI         *AIConfig        `mapstructure:"ai"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	HTTP       server.Config    `mapstructure:"http"`
}

type CandidatesConfig struct {
	File      string `mapstructure:"file"`
	Separator string `mapstructure:"separator"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	Backend      string        `mapstructure:"backend"`
	Project      string        `mapstructure:"project"`
	Location     string        `mapstructure:"location"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Temperature  *float32      `mapstructure:"temperature"`
	MaxRetries   int           `mapstructure:"max-retries"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

type AnalysisConfig struct {
	Delay     time.Duration   `mapstructure:"delay"`
	RateLimit RateLimitConfig `mapstructure:"rate-limit"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

func (a AnalysisConfig) Pacer() analysis.PacerConfig {
	return analysis.PacerConfig{Delay: a.Delay, RPS: a.RateLimit.RPS, Burst: a.RateLimit.Burst}
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-screener scores candidate profiles against a job spec with Gemini",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("ai.gemini.api-key", envPrefix+"_AI_GEMINI_API_KEY", "GOOGLE_API_KEY"); err != nil {
		log.Fatalf("binding GOOGLE_API_KEY environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("data-dir", "", "directory for vaga.json and resultados.json")
	rootCmd.PersistentFlags().String("candidates", "", "candidate file (default is dados_extraidos.csv)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("store.data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("candidates.file", rootCmd.PersistentFlags().Lookup("candidates"))
}

func setDefaults() {
	viper.SetDefault("store.driver", store.DriverFile)
	viper.SetDefault("store.data-dir", ".")
	viper.SetDefault("store.sqlite-path", store.DefaultSQLitePath)
	viper.SetDefault("store.redis.addr", "")
	viper.SetDefault("store.redis.password", "")
	viper.SetDefault("store.redis.db", 0)
	viper.SetDefault("store.redis.prefix", store.DefaultRedisPrefix)

	viper.SetDefault("candidates.file", candidates.DefaultFile)
	viper.SetDefault("candidates.separator", string(candidates.DefaultSeparator))

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.api-key", "")
	viper.SetDefault("ai.gemini.api-key-file", "")
	viper.SetDefault("ai.gemini.model", "gemini-1.5-flash")
	viper.SetDefault("ai.gemini.backend", "gemini")
	viper.SetDefault("ai.gemini.project", "")
	viper.SetDefault("ai.gemini.location", "")
	viper.SetDefault("ai.gemini.timeout", 60*time.Second)
	viper.SetDefault("ai.gemini.max-retries", 0)
	viper.SetDefault("ai.gemini.max-log-length", 200)

	viper.SetDefault("analysis.delay", analysis.DefaultDelay)
	viper.SetDefault("analysis.rate-limit.rps", 0)
	viper.SetDefault("analysis.rate-limit.burst", 1)

	viper.SetDefault("http.addr", server.DefaultAddr)
	viper.SetDefault("http.cors-allow-origins", []string{"*"})
	viper.SetDefault("http.rate-limit-per-min", server.DefaultRateLimitPerMin)
	viper.SetDefault("http.read-timeout", 30*time.Second)
	viper.SetDefault("http.write-timeout", 60*time.Second)
}

func initConfig() {
	if err := loadDotEnv(dotEnv); err != nil {
		log.Fatalf("reading %s: %v", dotEnv, err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless given explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

// loadDotEnv exports variables from a dotenv file without overriding the environment.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
