package params

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Node struct {
	// DataDir holds the Pebble audit store and log files.
	DataDir string
	// MarketsFile is the YAML file listing trading pairs.
	MarketsFile string
	LogFile     string
	LogLevel    string
}

type API struct {
	Addr string
}

type Kafka struct {
	// Brokers empty disables the Kafka event sink.
	Brokers []string
	Topic   string
}

type Config struct {
	Node  Node
	API   API
	Kafka Kafka
}

func Default() Config {
	return Config{
		Node: Node{
			DataDir:     "./data",
			MarketsFile: "./markets.yaml",
			LogFile:     "data/node.log",
			LogLevel:    "info",
		},
		API: API{
			Addr: ":8080",
		},
		Kafka: Kafka{
			Topic: "meridian.events",
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Node.DataDir = v
	}
	if v := os.Getenv("MARKETS_FILE"); v != "" {
		cfg.Node.MarketsFile = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Node.LogFile = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Node.LogLevel = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		// Example: "localhost:9092,localhost:9093"
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}

	return cfg
}
