package dnsmasq

import (
	"context"
	"fmt"
	"os"

	"github.com/mirkobrombin/dnsforge/internal/config"
	"github.com/mirkobrombin/dnsforge/internal/logger"
)

// ValidationError is returned by Install when the resolver rejects the
// staged configuration. The live configuration is left untouched.
type ValidationError struct {
	Outcome  ValidationOutcome
	Path     string // staged file that was tested
	Line     int    // 0 when the diagnostic carries no line reference
	LineText string
}

func (e *ValidationError) Error() string {
	msg := e.Outcome.Diagnostic
	if e.Outcome.Crashed || msg == "" {
		msg = e.Outcome.String()
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d: %q)", msg, e.Line, e.LineText)
	}
	return msg
}

// NewValidationError annotates outcome with the offending line of path, when
// the diagnostic names one and the line can still be read.
func NewValidationError(outcome ValidationOutcome, path string) *ValidationError {
	verr := &ValidationError{Outcome: outcome, Path: path}
	if n, ok := LineNumber(outcome.Diagnostic); ok {
		if text, ok := Line(path, n); ok {
			verr.Line = n
			verr.LineText = text
		}
	}
	return verr
}

// InterfaceChecker reports whether a network interface exists on the host.
type InterfaceChecker func(name string) (bool, error)

// Installer renders, optionally tests and installs the resolver config.
type Installer struct {
	Renderer  *Renderer
	Validator *Validator
	Logger    *logger.Logger
	// CheckInterface, when set, is used to warn about an interface-bound
	// listening mode naming an interface that does not exist.
	CheckInterface InterfaceChecker
}

// NewInstaller wires a Renderer and Validator for the given paths.
func NewInstaller(paths config.Paths, binary string, log *logger.Logger) *Installer {
	return &Installer{
		Renderer:  NewRenderer(paths),
		Validator: NewValidator(binary, log),
		Logger:    log,
	}
}

// Install writes conf to the staged path, tests it with the resolver when
// test is true, and renames it onto the live path. On a rejected config the
// staged file stays in place for inspection and a *ValidationError is
// returned. Any other error is an environment failure.
func (in *Installer) Install(ctx context.Context, conf *config.Config, test bool) error {
	log := in.Logger
	if log == nil {
		log = logger.Nop()
	}
	paths := in.Renderer.Paths

	in.warnMissingInterface(conf, log)

	log.Debugf("Opening %s for writing", paths.StagedConf)
	if err := in.Renderer.WriteStaged(conf); err != nil {
		log.Errorf("%v", err)
		return err
	}

	if test {
		log.Debugf("Testing %s", paths.StagedConf)
		outcome, err := in.Validator.Validate(ctx, paths.StagedConf)
		if err != nil {
			log.Errorf("%v", err)
			return err
		}
		if !outcome.OK() {
			verr := NewValidationError(outcome, paths.StagedConf)
			log.Warnf("New dnsmasq configuration is not valid (%s), config remains unchanged", verr)
			return verr
		}
	}

	log.Debugf("Installing %s to %s", paths.StagedConf, paths.LiveConf)
	if err := os.Rename(paths.StagedConf, paths.LiveConf); err != nil {
		log.Errorf("Cannot install dnsmasq config file: %v", err)
		return fmt.Errorf("cannot install dnsmasq config file: %w", err)
	}
	return nil
}

// Test renders conf to the staged path and runs the validator without
// installing anything.
func (in *Installer) Test(ctx context.Context, conf *config.Config) error {
	if err := in.Renderer.WriteStaged(conf); err != nil {
		return err
	}
	outcome, err := in.Validator.Validate(ctx, in.Renderer.Paths.StagedConf)
	if err != nil {
		return err
	}
	if !outcome.OK() {
		return NewValidationError(outcome, in.Renderer.Paths.StagedConf)
	}
	return nil
}

func (in *Installer) warnMissingInterface(conf *config.Config, log *logger.Logger) {
	if in.CheckInterface == nil {
		return
	}
	mode := conf.DNS.ListeningMode
	if mode != config.ListenSingle && mode != config.ListenBind && !(conf.DNS.DHCP.Active && conf.DNS.DHCP.IPv6) {
		return
	}
	iface := interfaceName(&conf.DNS)
	ok, err := in.CheckInterface(iface)
	if err != nil {
		log.Debugf("Cannot list network interfaces: %v", err)
		return
	}
	if !ok {
		log.Warnf("Interface %s does not exist on this host, dnsmasq will not answer on it", iface)
	}
}
