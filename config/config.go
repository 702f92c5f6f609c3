// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Config struct'ı tüm ayarları tek bir yerde toplar, böylece
// her yerde ayrı ayrı os.Getenv() çağırmak yerine tek bir Config nesnesi taşırız.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct — her struct tek bir concern'ü temsil eder.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Chat     ChatConfig
	Storage  StorageConfig
}

// ServerConfig, relay HTTP server ayarları.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/ikimiz.db)
}

// JWTConfig, access token doğrulama ayarları.
// Bu repo token ÜRETMEZ — kimlik sağlayıcının imzaladığı token'ları doğrular.
type JWTConfig struct {
	Secret string // Token imzalama anahtarı — GİZLİ TUTULMALI
}

// ChatConfig, chat koordinasyon katmanı ayarları.
type ChatConfig struct {
	// TypingExpiry: "yazıyor" göstergesinin, takip eden bir sinyal gelmezse
	// kendi kendine sönme süresi. Kaçan bir "stopped typing" broadcast'i
	// göstergeyi sonsuza dek açık bırakmasın diye vardır.
	TypingExpiry time.Duration
}

// StorageConfig, dosya eki ve imzalı URL ayarları.
type StorageConfig struct {
	Dir     string        // Eklerin saklandığı dizin
	BaseURL string        // İmzalı URL'lerin önüne eklenen public adres
	URLTTL  time.Duration // İmzalı URL'lerin geçerlilik süresi
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
func Load() (*Config, error) {
	// .env dosyasını yükle — dosya yoksa hata vermez, sessizce devam eder.
	// Production'da bu dosya olmaz, gerçek env variable'lar kullanılır.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "9090"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	typingExpiry, err := strconv.Atoi(getEnv("TYPING_EXPIRY_SECONDS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid TYPING_EXPIRY_SECONDS: %w", err)
	}

	urlTTL, err := strconv.Atoi(getEnv("STORAGE_URL_TTL_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid STORAGE_URL_TTL_MINUTES: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/ikimiz.db"),
		},
		JWT: JWTConfig{
			Secret: jwtSecret,
		},
		Chat: ChatConfig{
			TypingExpiry: time.Duration(typingExpiry) * time.Second,
		},
		Storage: StorageConfig{
			Dir:     getEnv("STORAGE_DIR", "./data/attachments"),
			BaseURL: getEnv("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", port)),
			URLTTL:  time.Duration(urlTTL) * time.Minute,
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
