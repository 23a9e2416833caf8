package main

import (
	"fmt"
	"strings"
	"time"
)

// Config is loaded from the environment. SweepInterval and ParticipantTTL are
// deliberately independent: the source system shipped 15s/10s, which evicts a
// silent participant on its first eligible tick. Deployers wanting a
// guaranteed grace period must set the TTL above the interval.
type Config struct {
	BadgerFilepath  string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	Host            string        `env:"HOST,default=localhost"`
	Port            int           `env:"PORT,default=5000"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL,default=15s"`
	ParticipantTTL  time.Duration `env:"PARTICIPANT_TTL,default=10s"`
	CensoredWords   string        `env:"CENSORED_WORDS"`
	CensoredChar    string        `env:"CENSORED_CHARACTER,default=*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
}

// CensoredWordList splits the comma-separated word list, dropping blanks.
func (c Config) CensoredWordList() []string {
	var words []string
	for _, w := range strings.Split(c.CensoredWords, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// CharacterRune validates that the replacement is a single character.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CENSORED_CHARACTER must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
