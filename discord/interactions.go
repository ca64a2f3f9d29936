package discord

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// maxInteractionBody caps how much of a webhook body is read.
const maxInteractionBody = 1 << 20

// InteractionHandler answers Discord's interaction webhook: it verifies the
// request signature, acknowledges pings and routes slash commands to the
// registered functions.
type InteractionHandler struct {
	publicKey ed25519.PublicKey
	functions []BotFunctionI
}

// NewInteractionHandler builds a handler for the application's hex-encoded
// public key.
func NewInteractionHandler(publicKeyHex string, functions []BotFunctionI) (*InteractionHandler, error) {
	key, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode discord public key: %w", err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("discord public key must be %d bytes, got %d", ed25519.PublicKeySize, len(key))
	}
	return &InteractionHandler{
		publicKey: ed25519.PublicKey(key),
		functions: functions,
	}, nil
}

// Functions returns the registered commands.
func (h *InteractionHandler) Functions() []BotFunctionI {
	return h.functions
}

func (h *InteractionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxInteractionBody)

	if !discordgo.VerifyInteraction(r, h.publicKey) {
		slog.Warn("rejected interaction with bad signature", "remote", r.RemoteAddr)
		http.Error(w, "Bad request signature.", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read interaction body", "error", err)
		writeJSONError(w, "Bad request body", http.StatusBadRequest)
		return
	}

	var interaction discordgo.Interaction
	if err := json.Unmarshal(body, &interaction); err != nil {
		slog.Error("failed to decode interaction", "error", err)
		writeJSONError(w, "Bad request body", http.StatusBadRequest)
		return
	}

	switch interaction.Type {
	case discordgo.InteractionPing:
		writeJSON(w, http.StatusOK, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponsePong,
		})
		return

	case discordgo.InteractionApplicationCommand:
		h.handleCommand(w, r, &interaction)
		return
	}

	slog.Error("Unknown Type", "interaction_type", interaction.Type)
	writeJSONError(w, "Unknown Type", http.StatusBadRequest)
}

// handleCommand routes a slash command to the function with a matching name.
func (h *InteractionHandler) handleCommand(w http.ResponseWriter, r *http.Request, i *discordgo.Interaction) {
	cmdData := i.ApplicationCommandData()

	slog.Debug("received interaction", "cmd", cmdData.Name, "guild_id", i.GuildID)

	var fn BotFunctionI
	for _, f := range h.functions {
		if strings.EqualFold(f.GetName(), cmdData.Name) {
			fn = f
			break
		}
	}
	if fn == nil {
		slog.Warn("received unknown command", "command", cmdData.Name)
		writeJSONError(w, "Unknown Type", http.StatusBadRequest)
		return
	}

	respData, err := fn.HandleInteraction(r.Context(), &cmdData)
	if err != nil {
		slog.Error("failed to execute command", "command", fn.GetName(), "error", err)
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: respData,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write interaction response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
