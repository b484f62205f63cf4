package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"regexp"
	"strings"
)

// IdentityProvider is the external account backend.
type IdentityProvider interface {
	// CreateUser registers an account and returns its id.
	CreateUser(ctx context.Context, email, password string) (string, error)
	// VerifyUser looks up a verified account by email and returns its id.
	VerifyUser(ctx context.Context, email string) (string, error)
}

// TextCompletionProvider is the external text generation backend.
type TextCompletionProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Errors an IdentityProvider may return; anything else is reported as a
// generic failure.
var (
	ErrUserExists     = errors.New("user already exists")
	ErrUserNotFound   = errors.New("user not found")
	ErrUserUnverified = errors.New("user not verified")
)

const minPasswordLen = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const aiPreamble = "You are SnakelAI, a helpful AI assistant for the Snakel game. " +
	"Keep your answers concise and game-focused. If a question is not about Snakel, politely redirect.\n\nUser: "

// register validates on the loop, then calls the provider off it.
func (g *Game) register(connID string, data json.RawMessage) {
	req, err := DecodePayload[RegisterRequest](data)
	switch {
	case err != nil, !emailPattern.MatchString(req.Username):
		g.hub.SendTo(connID, EvRegisterResult, AuthResultMsg{Message: "Invalid email format."})
		return
	case len(req.Password) < minPasswordLen:
		g.hub.SendTo(connID, EvRegisterResult, AuthResultMsg{Message: "Password must be at least 6 characters long."})
		return
	}

	identity := g.identity
	g.async(func(ctx context.Context) {
		if identity == nil {
			g.hub.SendTo(connID, EvRegisterResult, AuthResultMsg{Message: "Server error: authentication service not available."})
			return
		}
		userID, err := identity.CreateUser(ctx, req.Username, req.Password)
		if err != nil {
			g.hub.SendTo(connID, EvRegisterResult, AuthResultMsg{Message: registerFailure(err)})
			return
		}
		log.Printf("registered user %s", userID)
		g.hub.SendTo(connID, EvRegisterResult, AuthResultMsg{
			Success: true,
			Message: "Registration successful! Please check your email for a verification link.",
			UserID:  userID,
		})
	})
}

func (g *Game) login(connID string, data json.RawMessage) {
	req, err := DecodePayload[LoginRequest](data)
	if err != nil || !emailPattern.MatchString(req.Username) {
		g.hub.SendTo(connID, EvLoginResult, AuthResultMsg{Message: "Invalid email format."})
		return
	}

	identity := g.identity
	g.async(func(ctx context.Context) {
		if identity == nil {
			g.hub.SendTo(connID, EvLoginResult, AuthResultMsg{Message: "Server error: authentication service not available."})
			return
		}
		userID, err := identity.VerifyUser(ctx, req.Username)
		if err != nil {
			g.hub.SendTo(connID, EvLoginResult, AuthResultMsg{Message: loginFailure(err)})
			return
		}
		g.hub.SendTo(connID, EvLoginResult, AuthResultMsg{Success: true, Message: "Login successful", UserID: userID})
	})
}

func (g *Game) askAI(connID string, data json.RawMessage) {
	req, err := DecodePayload[AskAIRequest](data)
	msg := strings.TrimSpace(req.Message)
	if err != nil || msg == "" {
		g.hub.SendTo(connID, EvAIResponse, AIResponseMsg{Response: "Ask me something about the game!"})
		return
	}
	if len(msg) > AIMaxPromptBytes {
		msg = msg[:AIMaxPromptBytes]
	}

	completion := g.completion
	g.async(func(ctx context.Context) {
		if completion == nil {
			g.hub.SendTo(connID, EvAIResponse, AIResponseMsg{Response: "Sorry, my AI brain is not online right now."})
			return
		}
		text, err := completion.Complete(ctx, aiPreamble+msg)
		if err != nil {
			log.Printf("text completion for %s: %v", connID, err)
			g.hub.SendTo(connID, EvAIResponse, AIResponseMsg{
				Response: "Oops! I encountered an error trying to process that. Could you rephrase or try again?",
			})
			return
		}
		g.hub.SendTo(connID, EvAIResponse, AIResponseMsg{Response: text})
	})
}

// async runs fn off the game loop with a bounded deadline. fn must only talk
// to the hub; game state belongs to the loop.
func (g *Game) async(fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("panic in collaborator call: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), CollaboratorTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func registerFailure(err error) string {
	switch {
	case errors.Is(err, ErrUserExists):
		return "The email address is already in use by another account."
	case errors.Is(err, ErrCollaboratorUnavailable):
		return "Server error: authentication service not available."
	default:
		return "Registration failed due to an unknown error."
	}
}

func loginFailure(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "No user found with that email."
	case errors.Is(err, ErrUserUnverified):
		return "Please verify your email address to log in."
	case errors.Is(err, ErrCollaboratorUnavailable):
		return "Server error: authentication service not available."
	default:
		return "Login failed."
	}
}
