package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server     Server
	Database   Database
	Gemini     Gemini
	Scraper    Scraper
	Generation Generation
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type Gemini struct {
	APIKey string
	Model  string
}

type Scraper struct {
	Timeout      time.Duration
	AllowAnyHost bool
}

type Generation struct {
	// Timeout bounds one whole generation request (prompt + repair),
	// separate from the scraper's transport timeout.
	Timeout             time.Duration
	ArticleCharLimit    int
	MinQuestionsDefault int
	MaxQuestionsDefault int
	FallbackMinItems    int
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("SCRAPER_TIMEOUT_SECONDS", 15)
	viper.SetDefault("SCRAPER_ALLOW_ANY_HOST", false)
	viper.SetDefault("GENERATION_TIMEOUT_SECONDS", 60)
	viper.SetDefault("ARTICLE_CHAR_LIMIT", 80_000)
	viper.SetDefault("MIN_QUESTIONS_DEFAULT", 5)
	viper.SetDefault("MAX_QUESTIONS_DEFAULT", 10)
	viper.SetDefault("FALLBACK_MIN_ITEMS", 3)

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")
	config.Database.SSLMode = viper.GetString("DATABASE_SSLMODE")

	config.Gemini.APIKey = viper.GetString("GEMINI_API_KEY")
	config.Gemini.Model = viper.GetString("GEMINI_MODEL")

	config.Scraper.Timeout = time.Duration(viper.GetInt("SCRAPER_TIMEOUT_SECONDS")) * time.Second
	config.Scraper.AllowAnyHost = viper.GetBool("SCRAPER_ALLOW_ANY_HOST")

	config.Generation.Timeout = time.Duration(viper.GetInt("GENERATION_TIMEOUT_SECONDS")) * time.Second
	config.Generation.ArticleCharLimit = viper.GetInt("ARTICLE_CHAR_LIMIT")
	config.Generation.MinQuestionsDefault = viper.GetInt("MIN_QUESTIONS_DEFAULT")
	config.Generation.MaxQuestionsDefault = viper.GetInt("MAX_QUESTIONS_DEFAULT")
	config.Generation.FallbackMinItems = viper.GetInt("FALLBACK_MIN_ITEMS")

	log.Info().Str("port", config.Server.Port).Str("gemini_model", config.Gemini.Model).Msg("Config loaded")
	return &config, nil
}
