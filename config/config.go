package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Observ   ObservabilityConfig
	Business BusinessConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DataConfig struct {
	Dir         string
	CatalogFile string
	UsersFile   string
	AdminsFile  string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

// DiscountTier applies Rate when the taxed total reaches Threshold.
// Tiers are checked highest threshold first; only one applies.
type DiscountTier struct {
	Threshold float64
	Rate      float64
}

type BusinessConfig struct {
	TaxRate       float64
	DiscountTiers []DiscountTier
}

type SecurityConfig struct {
	BcryptCost      int
	SessionTTLHours int
}

func Load() *Config {
	_ = godotenv.Load()

	taxRate, _ := strconv.ParseFloat(getEnv("TAX_RATE", "0.19"), 64)
	bcryptCost, _ := strconv.Atoi(getEnv("BCRYPT_COST", "10"))
	sessionTTL, _ := strconv.Atoi(getEnv("SESSION_TTL_HOURS", "24"))
	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Data: DataConfig{
			Dir:         dataDir,
			CatalogFile: filepath.Join(dataDir, getEnv("CATALOG_FILE", "products.json")),
			UsersFile:   filepath.Join(dataDir, getEnv("USERS_FILE", "users.json")),
			AdminsFile:  filepath.Join(dataDir, getEnv("ADMINS_FILE", "admins.json")),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
		Business: BusinessConfig{
			TaxRate:       taxRate,
			DiscountTiers: parseDiscountTiers(getEnv("DISCOUNT_TIERS", "200:0.2,100:0.1")),
		},
		Security: SecurityConfig{
			BcryptCost:      bcryptCost,
			SessionTTLHours: sessionTTL,
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, data=%s", cfg.Server.Env, cfg.Server.Port, cfg.Data.Dir)
	return cfg
}

// parseDiscountTiers parses "threshold:rate,threshold:rate" pairs,
// highest threshold first
func parseDiscountTiers(raw string) []DiscountTier {
	var tiers []DiscountTier
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		threshold, err1 := strconv.ParseFloat(parts[0], 64)
		rate, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			log.Printf("Skipping malformed discount tier %q", pair)
			continue
		}
		tiers = append(tiers, DiscountTier{Threshold: threshold, Rate: rate})
	}
	return tiers
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
