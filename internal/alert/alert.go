// Copyright 2020 The grand-mother Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alert sends conversion summaries by mail.
package alert // import "github.com/grand-mother/c-grand-to-hdf5/internal/alert"

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"

	mail "gopkg.in/gomail.v2"
)

// Config holds the mail server credentials and the alert recipients.
type Config struct {
	User string
	Pass string
	Host string
	Port int
	Tgts []string
}

// FromEnv returns the configuration held by the MAIL_USERNAME,
// MAIL_PASSWORD, MAIL_SERVER, MAIL_PORT and MAIL_TGTS environment
// variables. MAIL_TGTS is a comma separated list of addresses.
func FromEnv() Config {
	return configFrom(os.Getenv)
}

func configFrom(getenv func(string) string) Config {
	cfg := Config{
		User: getenv("MAIL_USERNAME"),
		Pass: getenv("MAIL_PASSWORD"),
		Host: getenv("MAIL_SERVER"),
	}
	cfg.Port, _ = strconv.Atoi(getenv("MAIL_PORT"))
	for _, tgt := range strings.Split(getenv("MAIL_TGTS"), ",") {
		tgt = strings.TrimSpace(tgt)
		if tgt == "" {
			continue
		}
		cfg.Tgts = append(cfg.Tgts, tgt)
	}
	return cfg
}

// Valid returns whether cfg holds everything needed to send a mail.
func (cfg Config) Valid() bool {
	return cfg.User != "" && cfg.Pass != "" &&
		cfg.Host != "" && cfg.Port != 0 &&
		len(cfg.Tgts) != 0
}

// Message creates the mail sent to the configured recipients.
func (cfg Config) Message(subject, body string) *mail.Message {
	msg := mail.NewMessage()
	msg.SetHeader("From", cfg.User)
	msg.SetHeader("Bcc", cfg.Tgts...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return msg
}

// Send sends a plain text mail to the configured recipients.
func (cfg Config) Send(subject, body string) error {
	if !cfg.Valid() {
		return fmt.Errorf("alert: missing mail credentials")
	}

	dial := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	dial.TLSConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	err := dial.DialAndSend(cfg.Message(subject, body))
	if err != nil {
		return fmt.Errorf("alert: could not send mail: %w", err)
	}
	return nil
}
