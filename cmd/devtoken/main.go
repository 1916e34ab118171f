package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/domain"
	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/service"
)

// devtoken imprime un access token para probar el chat contra el backend local.
func main() {
	_ = godotenv.Load()

	id := flag.String("id", "", "user id")
	name := flag.String("name", "", "display name")
	roleFlag := flag.String("role", "PATIENT", "PATIENT o NURSE")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET no configurado")
	}
	role, err := domain.ParseRole(*roleFlag)
	if err != nil {
		log.Fatal(err)
	}

	token, err := service.NewJWTService(secret, *ttl).Issue(domain.Identity{ID: *id, Name: *name, Role: role})
	if err != nil {
		log.Fatalf("emitir token: %v", err)
	}
	fmt.Println(token)
}
