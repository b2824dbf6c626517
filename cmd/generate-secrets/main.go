package main

import (
	"fmt"
	"log"

	"github.com/skyleg/emptyleg-backend/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Signing secret generator")
	fmt.Println("===========================================")
	fmt.Println()

	secrets, err := utils.GenerateSigningSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("Add these to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", secrets.JWTSecret)
	fmt.Printf("CONFIRMATION_SIGNING_SECRET=%s\n", secrets.ConfirmationSecret)
	fmt.Println()
	fmt.Println("Keep these out of version control.")
	fmt.Println("===========================================")
}
