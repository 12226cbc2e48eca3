package main

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	sa "github.com/YusuffDevOps/Secrets-app"
)

// Server holds the HTTP surface of the app: public pages, the local
// login/signup endpoints, the mounted auth gateway and the gated
// secret-submission pages.
type Server struct {
	gateway   *sa.Gateway
	localAuth *sa.LocalAuth
	secrets   *sa.SecretService
}

func NewServer(gateway *sa.Gateway, localAuth *sa.LocalAuth, secrets *sa.SecretService) *Server {
	return &Server{
		gateway:   gateway,
		localAuth: localAuth,
		secrets:   secrets,
	}
}

func (s *Server) Router() http.Handler {
	mw := &s.gateway.Middleware
	authHandler := s.gateway.Handler()

	r := mux.NewRouter()
	r.Handle("/", mw.ExtractUser(http.HandlerFunc(s.handleHome))).Methods("GET")

	r.Handle("/login", mw.ExtractUser(http.HandlerFunc(s.handleLoginPage))).Methods("GET")
	r.Handle("/login", s.localAuth).Methods("POST")
	r.Handle("/register", mw.ExtractUser(http.HandlerFunc(s.handleRegisterPage))).Methods("GET")
	r.HandleFunc("/register", s.localAuth.HandleSignup).Methods("POST")
	r.Handle("/logout", authHandler).Methods("GET")

	r.Handle("/secrets", mw.ExtractUser(http.HandlerFunc(s.handleSecrets))).Methods("GET")
	r.Handle("/submit", mw.EnsureUser(http.HandlerFunc(s.handleSubmitPage))).Methods("GET")
	r.Handle("/submit", mw.EnsureUser(http.HandlerFunc(s.handleSubmit))).Methods("POST")

	r.PathPrefix("/auth/").Handler(http.StripPrefix("/auth", authHandler))
	return r
}

type pageData struct {
	LoggedIn bool
	Error    string
	Secrets  []string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, "home.html", pageData{LoggedIn: sa.IsAuthenticated(r)})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if sa.IsAuthenticated(r) {
		http.Redirect(w, r, s.gateway.PostLoginURL, http.StatusFound)
		return
	}
	s.render(w, "login.html", pageData{Error: r.URL.Query().Get("error")})
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if sa.IsAuthenticated(r) {
		http.Redirect(w, r, s.gateway.PostLoginURL, http.StatusFound)
		return
	}
	s.render(w, "register.html", pageData{Error: r.URL.Query().Get("error")})
}

func (s *Server) handleSecrets(w http.ResponseWriter, r *http.Request) {
	users, err := s.secrets.UsersWithSecret()
	if err != nil {
		slog.Error("listing secrets failed", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data := pageData{LoggedIn: sa.IsAuthenticated(r)}
	for _, u := range users {
		if u.Secret != nil {
			data.Secrets = append(data.Secrets, *u.Secret)
		}
	}
	s.render(w, "secrets.html", data)
}

func (s *Server) handleSubmitPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "submit.html", pageData{LoggedIn: true})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, _ := sa.UserFromRequest(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	if err := s.secrets.SubmitSecret(user, r.PostForm.Get("secret")); err != nil {
		slog.Error("submitting secret failed", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

func (s *Server) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("rendering template failed", "template", name, "err", err)
	}
}
