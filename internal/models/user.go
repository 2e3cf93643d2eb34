package models

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthContext передаётся в шлюз бэкенда явно, при создании клиента.
type AuthContext struct {
	Token string
}

func (a AuthContext) Authenticated() bool { return a.Token != "" }
