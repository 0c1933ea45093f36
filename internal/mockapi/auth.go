package mockapi

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nao1215/scoperival/internal/model"
)

type userKey struct{}

// currentUser returns the user set by authenticate.
func currentUser(ctx context.Context) model.User {
	u, _ := ctx.Value(userKey{}).(model.User)
	return u
}

var errInvalidToken = errors.New("invalid token")

// issueToken signs an HS256 token whose subject is the user's email.
func (s *Server) issueToken(email string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// parseToken validates a token and returns its subject.
func (s *Server) parseToken(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			unauthorized(w, detailInvalidToken)
			return
		}
		email, err := s.parseToken(raw)
		if err != nil {
			unauthorized(w, detailInvalidToken)
			return
		}
		a, ok := s.store.account(email)
		if !ok {
			unauthorized(w, detailInvalidToken)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, a.user)))
	})
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in model.Registration
	if !decode(w, r, &in) {
		return
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "value is not a valid email address")
		return
	}
	if in.Password == "" || in.CompanyName == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "password and company_name are required")
		return
	}
	if _, exists := s.store.account(in.Email); exists {
		writeDetail(w, http.StatusBadRequest, detailEmailTaken)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}
	a := account{
		user: model.User{
			ID:          uuid.NewString(),
			Email:       in.Email,
			CompanyName: in.CompanyName,
			CreatedAt:   s.now().UTC(),
		},
		hash: hash,
	}
	if !s.store.addAccount(a) {
		writeDetail(w, http.StatusBadRequest, detailEmailTaken)
		return
	}
	s.logger.Info("user registered", "user_id", a.user.ID)
	s.respondToken(w, in.Email)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in model.Credentials
	if !decode(w, r, &in) {
		return
	}
	a, ok := s.store.account(in.Email)
	if !ok || bcrypt.CompareHashAndPassword(a.hash, []byte(in.Password)) != nil {
		unauthorized(w, detailBadCredentials)
		return
	}
	s.respondToken(w, in.Email)
}

func (s *Server) respondToken(w http.ResponseWriter, email string) {
	token, err := s.issueToken(email)
	if err != nil {
		s.logger.Error("failed to sign token", "error", err)
		writeDetail(w, http.StatusInternalServerError, detailInternal)
		return
	}
	writeJSON(w, http.StatusOK, model.AccessToken{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r.Context()))
}
