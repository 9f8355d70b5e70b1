package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/d60-Lab/threadboard/config"
	"github.com/d60-Lab/threadboard/internal/auth"
)

// devtoken 为本地调试签发一个 Bearer 令牌
func main() {
	userID := flag.String("user", "", "user id (token subject)")
	username := flag.String("name", "", "display username")
	image := flag.String("image", "", "avatar url")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: devtoken -user <id> [-name <username>] [-image <url>]")
		os.Exit(2)
	}
	if *username == "" {
		*username = *userID
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	tok, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).
		Issue(auth.Identity{UserID: *userID, Username: *username, ImageURL: *image})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
