package logger

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// MinHashSaltLength is the shortest salt accepted by SetHashSalt.
const MinHashSaltLength = 16

var hashSalt = randomSalt()

func randomSalt() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// SetHashSalt fixes the salt used for ID hashing so hashes stay comparable
// across restarts. An empty salt keeps the random per-process one.
func SetHashSalt(salt string) error {
	if salt == "" {
		return nil
	}
	if len(salt) < MinHashSaltLength {
		return errors.New("LOG_HASH_SALT must be at least 16 characters")
	}
	hashSalt = salt
	return nil
}

func hashID(kind string, id int64) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%d:%s", kind, id, hashSalt))
	return hex.EncodeToString(sum[:])[:8]
}

// HashUserID returns a short stable token for a user ID so logs can follow
// one user without recording who they are.
func HashUserID(userID int64) string {
	return hashID("user", userID)
}

// HashChatID is HashUserID for chat IDs.
func HashChatID(chatID int64) string {
	return hashID("chat", chatID)
}

// SanitizeContent replaces note, todo, expense or prompt text with its shape.
func SanitizeContent(content string) string {
	if content == "" {
		return "<empty>"
	}
	return fmt.Sprintf("<redacted: %d words, %d chars>", len(strings.Fields(content)), len(content))
}

// SanitizeCommand keeps the leading slash command and drops its arguments.
func SanitizeCommand(text string) string {
	if !strings.HasPrefix(text, "/") {
		return SanitizeContent(text)
	}
	cmd, args, _ := strings.Cut(text, " ")
	if strings.TrimSpace(args) == "" {
		return cmd
	}
	return cmd + " " + SanitizeContent(strings.TrimSpace(args))
}
