package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// bookingPolicyFile mirrors the YAML layout of BOOKING_POLICY_FILE.
// Durations are written as Go duration strings ("3h").
type bookingPolicyFile struct {
	Booking struct {
		PaymentWindow      string `yaml:"payment_window"`
		ReferencePrefix    string `yaml:"reference_prefix"`
		DefaultCountryCode string `yaml:"default_country_code"`
		SweepSchedule      string `yaml:"sweep_schedule"`
		SweepBatchSize     int    `yaml:"sweep_batch_size"`
		DedupeWindow       string `yaml:"dedupe_window"`
	} `yaml:"booking"`
}

// LoadBookingPolicy overlays booking policy values from a YAML file.
// Keys missing from the file leave the current value untouched.
func LoadBookingPolicy(path string, cfg *BookingConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read booking policy %s: %w", path, err)
	}

	var file bookingPolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse booking policy %s: %w", path, err)
	}

	p := file.Booking
	if p.PaymentWindow != "" {
		d, err := time.ParseDuration(p.PaymentWindow)
		if err != nil {
			return fmt.Errorf("booking.payment_window: %w", err)
		}
		cfg.PaymentWindow = d
	}
	if p.DedupeWindow != "" {
		d, err := time.ParseDuration(p.DedupeWindow)
		if err != nil {
			return fmt.Errorf("booking.dedupe_window: %w", err)
		}
		cfg.DedupeWindow = d
	}
	if p.ReferencePrefix != "" {
		cfg.ReferencePrefix = p.ReferencePrefix
	}
	if p.DefaultCountryCode != "" {
		cfg.DefaultCountryCode = p.DefaultCountryCode
	}
	if p.SweepSchedule != "" {
		cfg.SweepSchedule = p.SweepSchedule
	}
	if p.SweepBatchSize > 0 {
		cfg.SweepBatchSize = p.SweepBatchSize
	}
	return nil
}
