package main

import (
	"fmt"
	"net/http"
)

func main() {
	http.HandleFunc("/perfil", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<h1>Perfil do Usuário</h1><p>Requisição recebida com sucesso!</p>")
		fmt.Println("Log: Alguém acessou o endpoint /perfil")
	})
	fmt.Println("Upstream de teste rodando em http://localhost:8082")
	err := http.ListenAndServe(":8082", nil)
	if err != nil {
		fmt.Printf("Erro ao subir o servidor: %s\n", err)
	}
}
