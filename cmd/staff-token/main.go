// Command staff-token issues a bearer token for local testing of the staff API.
// Production tokens come from the identity service that shares JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/skyleg/emptyleg-backend/internal/config"
	"github.com/skyleg/emptyleg-backend/pkg/jwt"
)

func main() {
	role := flag.String("role", jwt.RoleAdmin, "admin or operator")
	name := flag.String("name", "Local Staff", "display name carried in the token")
	operator := flag.String("operator-id", "", "operator id (required for operator tokens)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	identity := jwt.StaffIdentity{
		StaffID: uuid.New(),
		Name:    *name,
		Roles:   []string{*role},
	}
	if *operator != "" {
		operatorID, err := uuid.Parse(*operator)
		if err != nil {
			log.Fatalf("Invalid operator id: %v", err)
		}
		identity.OperatorID = &operatorID
	}

	service := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry)
	token, err := service.GenerateAccessToken(identity)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Println(token)
}
