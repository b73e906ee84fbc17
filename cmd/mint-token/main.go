package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dkhp/registration-backend/internal/config"
	"github.com/dkhp/registration-backend/internal/model"
	"github.com/dkhp/registration-backend/internal/service"
)

func main() {
	tokenType := flag.String("type", "student", "token type: student or admin")
	userID := flag.Int("id", 0, "student or admin id")
	perms := flag.String("perms", "all", "comma separated admin permissions, or \"all\"")
	flag.Parse()

	if *userID <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		flag.Usage()
		os.Exit(2)
	}

	var permissions []string
	switch service.TokenType(*tokenType) {
	case service.TokenTypeStudent:
	case service.TokenTypeAdmin:
		if *perms == "all" {
			permissions = model.PermissionStrings()
			break
		}
		for _, p := range strings.Split(*perms, ",") {
			if p = strings.TrimSpace(p); p != "" {
				permissions = append(permissions, p)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown token type %q\n", *tokenType)
		os.Exit(2)
	}

	auth := service.NewAuthService(config.Load())
	token, err := auth.MintToken(service.TokenType(*tokenType), *userID, permissions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
