package params

import "testing"

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Node.DataDir != "./data" || cfg.API.Addr != ":8080" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Fatal("Kafka should be disabled by default")
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/meridian")
	t.Setenv("API_ADDR", ":9999")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_TOPIC", "trades")

	cfg := LoadFromEnv("")
	if cfg.Node.DataDir != "/tmp/meridian" {
		t.Fatalf("DataDir = %s", cfg.Node.DataDir)
	}
	if cfg.API.Addr != ":9999" {
		t.Fatalf("Addr = %s", cfg.API.Addr)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.Topic != "trades" {
		t.Fatalf("Topic = %s", cfg.Kafka.Topic)
	}

	// Untouched keys keep their defaults.
	if cfg.Node.MarketsFile != "./markets.yaml" {
		t.Fatalf("MarketsFile = %s", cfg.Node.MarketsFile)
	}
}
