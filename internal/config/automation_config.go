// File: internal/config/automation_config.go
// This file defines the AutomationConfig struct, which holds every timing knob the
// form automation uses: element wait budgets, poll intervals, the small pauses between
// row interactions, and the settle delays the orchestrator inserts between stages.
//
// The defaults mirror the latencies observed on the vendor form. They are deliberately
// generous; a faster deployment can shrink them from the config file.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// AutomationConfig holds wait budgets and delays for the stage executors and the orchestrator.
type AutomationConfig struct {
	// -- Element waits --
	WaitTimeout        time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	PollInterval       time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	ButtonPollInterval time.Duration `mapstructure:"button_poll_interval" yaml:"button_poll_interval"`
	TableWaitTimeout   time.Duration `mapstructure:"table_wait_timeout" yaml:"table_wait_timeout"`
	FieldWaitTimeout   time.Duration `mapstructure:"field_wait_timeout" yaml:"field_wait_timeout"`
	ControlWaitTimeout time.Duration `mapstructure:"control_wait_timeout" yaml:"control_wait_timeout"`
	ButtonWaitTimeout  time.Duration `mapstructure:"button_wait_timeout" yaml:"button_wait_timeout"`

	// -- Parts table pacing --
	AfterYesDelay      time.Duration `mapstructure:"after_yes_delay" yaml:"after_yes_delay"`
	AfterModalDelay    time.Duration `mapstructure:"after_modal_delay" yaml:"after_modal_delay"`
	AfterDropdownDelay time.Duration `mapstructure:"after_dropdown_delay" yaml:"after_dropdown_delay"`
	DropdownOpenDelay  time.Duration `mapstructure:"dropdown_open_delay" yaml:"dropdown_open_delay"`

	// -- Serial popup --
	PopupRenderDelay   time.Duration `mapstructure:"popup_render_delay" yaml:"popup_render_delay"`
	AfterEnterDelay    time.Duration `mapstructure:"after_enter_delay" yaml:"after_enter_delay"`
	ConfirmAttempts    int           `mapstructure:"confirm_attempts" yaml:"confirm_attempts"`
	ConfirmAttemptGap  time.Duration `mapstructure:"confirm_attempt_gap" yaml:"confirm_attempt_gap"`
	EscalationPause    time.Duration `mapstructure:"escalation_pause" yaml:"escalation_pause"`
	ConfirmClickDelay  time.Duration `mapstructure:"confirm_click_delay" yaml:"confirm_click_delay"`
	ConfirmClickWindow time.Duration `mapstructure:"confirm_click_window" yaml:"confirm_click_window"`
	// CompletionHook is the page-global function the vendor form calls when the
	// parts popup is confirmed.
	CompletionHook string `mapstructure:"completion_hook" yaml:"completion_hook"`

	// -- Orchestrator --
	Settle SettleConfig `mapstructure:"settle" yaml:"settle"`

	// -- Fixed test-result constants --
	FlowRateLow  string `mapstructure:"flow_rate_low" yaml:"flow_rate_low"`
	FlowRateHigh string `mapstructure:"flow_rate_high" yaml:"flow_rate_high"`
}

// SettleConfig holds the fixed pauses inserted between workflow stages.
type SettleConfig struct {
	BeforeParts      time.Duration `mapstructure:"before_parts" yaml:"before_parts"`
	BeforePartsRetry time.Duration `mapstructure:"before_parts_retry" yaml:"before_parts_retry"`
	AfterParts       time.Duration `mapstructure:"after_parts" yaml:"after_parts"`
	PartsToSerial    time.Duration `mapstructure:"parts_to_serial" yaml:"parts_to_serial"`
	AfterSerial      time.Duration `mapstructure:"after_serial" yaml:"after_serial"`
}

// setAutomationDefaults registers the timing defaults with viper.
func setAutomationDefaults(v *viper.Viper) {
	v.SetDefault("automation.wait_timeout", "2s")
	v.SetDefault("automation.poll_interval", "100ms")
	v.SetDefault("automation.button_poll_interval", "150ms")
	v.SetDefault("automation.table_wait_timeout", "3s")
	v.SetDefault("automation.field_wait_timeout", "5s")
	v.SetDefault("automation.control_wait_timeout", "4s")
	v.SetDefault("automation.button_wait_timeout", "3s")

	v.SetDefault("automation.after_yes_delay", "120ms")
	v.SetDefault("automation.after_modal_delay", "150ms")
	v.SetDefault("automation.after_dropdown_delay", "80ms")
	v.SetDefault("automation.dropdown_open_delay", "120ms")

	v.SetDefault("automation.popup_render_delay", "500ms")
	v.SetDefault("automation.after_enter_delay", "300ms")
	v.SetDefault("automation.confirm_attempts", 3)
	v.SetDefault("automation.confirm_attempt_gap", "150ms")
	v.SetDefault("automation.escalation_pause", "250ms")
	v.SetDefault("automation.confirm_click_delay", "250ms")
	v.SetDefault("automation.confirm_click_window", "2s")
	v.SetDefault("automation.completion_hook", "MFWpartsConfirmed")

	v.SetDefault("automation.settle.before_parts", "600ms")
	v.SetDefault("automation.settle.before_parts_retry", "400ms")
	v.SetDefault("automation.settle.after_parts", "350ms")
	v.SetDefault("automation.settle.parts_to_serial", "250ms")
	v.SetDefault("automation.settle.after_serial", "1200ms")

	v.SetDefault("automation.flow_rate_low", "2.0")
	v.SetDefault("automation.flow_rate_high", "5.0")
}

// Validate checks the automation timings.
func (a *AutomationConfig) Validate() error {
	budgets := map[string]time.Duration{
		"wait_timeout":         a.WaitTimeout,
		"poll_interval":        a.PollInterval,
		"button_poll_interval": a.ButtonPollInterval,
		"table_wait_timeout":   a.TableWaitTimeout,
		"field_wait_timeout":   a.FieldWaitTimeout,
		"control_wait_timeout": a.ControlWaitTimeout,
		"button_wait_timeout":  a.ButtonWaitTimeout,
	}
	for name, d := range budgets {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	if a.PollInterval > a.WaitTimeout {
		return fmt.Errorf("poll_interval (%s) must not exceed wait_timeout (%s)", a.PollInterval, a.WaitTimeout)
	}
	if a.ConfirmAttempts <= 0 {
		return fmt.Errorf("confirm_attempts must be a positive integer")
	}
	return nil
}
