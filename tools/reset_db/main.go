package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"crowdfund/config"
	dbPkg "crowdfund/pkg/db"

	_ "github.com/go-sql-driver/mysql"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "config file path")
	yes := flag.Bool("yes", false, "skip confirmation")
	flag.Parse()

	cfg := config.LoadConfigFrom(*configPath)

	db, err := sql.Open("mysql", dbPkg.DSN(cfg.Database))
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Database connection test failed: %v", err)
	}

	fmt.Println("Database connected successfully")
	fmt.Printf("Database: %s\n", cfg.Database.Database)

	if !*yes {
		fmt.Print("\nWARNING: This operation will CLEAR ALL DATA in table [users]!\n")
		fmt.Print("Type 'YES' to confirm: ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "YES" {
			fmt.Println("Operation cancelled")
			return
		}
	}

	fmt.Print("Clearing table users... ")
	if _, err := db.Exec("DELETE FROM users"); err != nil {
		log.Fatalf("Failed: %v", err)
	}
	fmt.Println("Success")

	fmt.Print("Resetting users auto-increment... ")
	if _, err := db.Exec("ALTER TABLE users AUTO_INCREMENT = 1"); err != nil {
		log.Fatalf("Failed: %v", err)
	}
	fmt.Println("Success")

	fmt.Println("\nDatabase reset completed!")
}
