package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/docs"
	"github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/internal/library/books"
	"github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/internal/library/fees"
	"github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/internal/library/loans"
	"github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/internal/library/patrons"
	"github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/internal/platform/auth"
	"github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/internal/platform/db"
)

// @title Library Management API
// @version 1.0
// @description 蔵書の登録・検索・貸出・返却・延滞料金を扱う図書館バックエンド
// @BasePath /api/v1
func main() {
	// 設定読み込み
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	// 動作モード取得
	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if mode != "dev" && mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// API docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	schedule := fees.ScheduleFromConfig(cfg.Library.Fee)
	rules := loans.Rules{
		LoanPeriodDays: cfg.Library.LoanPeriodDays,
		BorrowLimit:    cfg.Library.BorrowLimit,
	}

	authSvc := auth.NewService(conn, cfg.Auth.Secret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	// /api/v1
	api := r.Group("/api/v1")
	auth.RegisterRoutes(api.Group("/auth"), authSvc)

	accounts := api.Group("/auth")
	lib := api.Group("")
	if mode == "release" {
		if cfg.Auth.Secret == "" {
			log.Fatal("[ERROR] auth.secret must be set in release mode")
		}
		accounts.Use(auth.RequireAuth(authSvc.Secret()), auth.RequireRole("admin"))
		lib.Use(auth.RequireAuth(authSvc.Secret()))
	}
	auth.RegisterAccountRoutes(accounts, authSvc)

	books.RegisterRoutes(lib, books.NewService(conn))
	patrons.RegisterRoutes(lib, patrons.NewService(conn, schedule, cfg.Library.BorrowLimit))
	loans.RegisterRoutes(lib, loans.NewService(conn, rules, schedule))
	fees.RegisterRoutes(lib, fees.NewService(conn, fees.NewSimulatedGateway(), schedule))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	go func() {
		var err error
		if cfg.Certificate.Cert != "" && cfg.Certificate.Key != "" {
			certFile := fmt.Sprintf("config/tls/%s/%s", mode, cfg.Certificate.Cert)
			keyFile := fmt.Sprintf("config/tls/%s/%s", mode, cfg.Certificate.Key)
			log.Printf("[INFO] listening on https://0.0.0.0%s", cfg.Addr)
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			log.Printf("[INFO] listening on http://0.0.0.0%s", cfg.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
