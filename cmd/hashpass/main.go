package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rutamoto/plataforma/internal/auth"
)

// hashpass genera un hash Argon2id para sembrar usuarios. Sin
// argumento lee la contraseña de stdin, para no dejarla en el
// historial de la shell.
func main() {
	var password string
	if len(os.Args) >= 2 {
		password = os.Args[1]
	} else {
		fmt.Fprint(os.Stderr, "contraseña: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "lectura: %v\n", err)
			os.Exit(1)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		fmt.Fprintln(os.Stderr, "uso: hashpass [contraseña]")
		os.Exit(1)
	}

	hash, err := auth.Hash(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
