// Package main, ikimiz relay server'ının giriş noktasıdır.
//
// Bu dosyanın görevi — Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. Database'i başlat
//  3. Attachment dizinini oluştur
//  4. Store layer'ı oluştur (DB bağlantısı ile)
//  5. Relay Hub'ı başlat
//  6. Handler'ları oluştur
//  7. HTTP router'ı kur, route'ları bağla
//  8. CORS yapılandır
//  9. HTTP Server'ı başlat
// 10. Graceful shutdown
//
// Global değişken YOK — her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/akinalp/ikimiz/config"
	"github.com/akinalp/ikimiz/database"
	"github.com/akinalp/ikimiz/relay"
	"github.com/akinalp/ikimiz/storage"
	"github.com/akinalp/ikimiz/store"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] ikimiz relay starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d)", cfg.Server.Port)

	// ─── 2. Database ───
	migrationsFS, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		log.Fatalf("[main] failed to access embedded migrations: %v", err)
	}

	db, err := database.New(cfg.Database.Path, migrationsFS)
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	// ─── 3. Attachment Dizini ───
	if err := os.MkdirAll(cfg.Storage.Dir, 0755); err != nil {
		log.Fatalf("[main] failed to create attachment directory: %v", err)
	}

	// ─── 4. Store Layer ───
	messageStore := store.NewSQLiteMessageStore(db.Conn)
	pairingStore := store.NewSQLitePairingStore(db.Conn)

	// ─── 5. Relay Hub ───
	//
	// Hub, tüm eş-kanallarını yöneten merkezi yapıdır.
	// `go hub.Run()` ayrı bir goroutine'de event loop başlatır:
	// register/unregister channel'larını dinler ve kanal map'ini günceller.
	hub := relay.NewHub()
	go hub.Run()

	// ─── 6. Handler Layer ───
	relayHandler := relay.NewHandler(hub, messageStore, pairingStore, []byte(cfg.JWT.Secret))

	urlSigner := storage.NewSigner([]byte(cfg.JWT.Secret), cfg.Storage.BaseURL, cfg.Storage.URLTTL)
	fileHandler := storage.NewHandler(urlSigner, cfg.Storage.Dir)

	// ─── 7. HTTP Router ───
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","service":"ikimiz-relay"}`)
	})

	// WebSocket — token ve kanal anahtarı query parameter ile gelir
	//
	// Neden auth middleware kullanmıyoruz?
	// WebSocket upgrade sırasında tarayıcılar custom HTTP header gönderemez.
	// Bu yüzden JWT token URL query parameter olarak gönderilir:
	//   ws://server/ws?token=JWT&channel=idA:idB
	// Relay handler kendi içinde token + kanal üyeliği doğrulaması yapar.
	mux.HandleFunc("GET /ws", relayHandler.HandleConnection)

	// İmzalı ek indirme — link kendi yetkisini taşır, ayrıca auth gerekmez
	mux.HandleFunc("GET /files", fileHandler.ServeFile)

	// ─── 8. CORS ───
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000", // Web dev server
			"http://localhost:1420", // Tauri dev
			"tauri://localhost",     // Tauri production
		},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		Debug:            false,
	})

	handler := corsHandler.Handler(mux)

	// ─── 9. HTTP Server ───
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ─── 10. Graceful Shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] relay listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// Önce WebSocket bağlantılarını kapat — client'lar bağlantının gittiğini bilir.
	// Sonra HTTP server'ı kapat — yeni request kabul etmeyi durdurur,
	// mevcut request'lerin bitmesini bekler (5sn timeout).
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] relay stopped gracefully")
}
