package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"cpu_throttle"
	"cpu_throttle/internal/installer"
	"cpu_throttle/internal/logger"
	"cpu_throttle/internal/metrics"
	"cpu_throttle/internal/models"
	"cpu_throttle/internal/repository"
	"cpu_throttle/internal/service"
)

const (
	readChunk = 4096
	protoName = "socket"
)

const (
	replyUnknown       = "ERROR: Unknown command\n"
	replyInvalidHeader = "ERROR: invalid header\n"
	replyIncomplete    = "ERROR: incomplete payload\n"
	replyTooLarge      = "ERROR: payload too large\n"
	replyNoProfile     = "ERROR: profile not found\n"
)

// Dispatcher serves control-socket connections, one command per connection.
type Dispatcher struct {
	svc       *service.Service
	metrics   *metrics.Metrics
	log       *logger.Logger
	ioTimeout time.Duration
}

func NewDispatcher(svc *service.Service, m *metrics.Metrics, log *logger.Logger, ioTimeout time.Duration) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Dispatcher{svc: svc, metrics: m, log: log, ioTimeout: ioTimeout}
}

// Serve reads one command from conn, runs it and writes the reply. Upload payloads
// are read to completion before Serve returns. conn is always closed.
func (d *Dispatcher) Serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	c := IdleConn{Conn: conn, Timeout: d.ioTimeout}

	var f Frame
	buf := make([]byte, readChunk)
	got := 0
	for !f.HeaderParsed() {
		n, err := c.Read(buf)
		got += n
		if n > 0 {
			if ferr := f.Feed(buf[:n]); ferr != nil {
				d.reply(c, "", replyInvalidHeader)
				return
			}
		}
		if err != nil {
			if got == 0 {
				return
			}
			if f.HeaderParsed() {
				break
			}
			if ferr := f.Finish(); ferr != nil {
				d.reply(c, "", replyInvalidHeader)
				return
			}
		}
	}

	var out string
	if f.IsUpload() {
		out = d.upload(ctx, &f, c)
	} else {
		out = d.run(ctx, f.Verb, f.Arg)
	}
	d.reply(c, f.Verb, out)
}

// Execute runs a single command line and returns its reply. Upload verbs are not
// accepted here.
func (d *Dispatcher) Execute(ctx context.Context, line string) string {
	verb, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	if verb == VerbPutProfile || verb == VerbPutSkin {
		return replyUnknown
	}
	return d.run(ctx, verb, strings.TrimSpace(arg))
}

func (d *Dispatcher) reply(w io.Writer, verb, out string) {
	if _, err := io.WriteString(w, out); err != nil {
		d.log.Debugw("socket_reply_failed", "verb", verb, "err", err)
	}
}

func (d *Dispatcher) upload(ctx context.Context, f *Frame, r io.Reader) string {
	d.metrics.Command(protoName, f.Verb)
	if f.Name == "" {
		return replyInvalidHeader
	}

	limit := int64(service.MaxProfileBytes)
	if f.Verb == VerbPutSkin {
		limit = service.MaxSkinBytes
	}
	if f.Expected > limit {
		n, _ := io.CopyN(io.Discard, f.Body(r), f.Expected)
		d.log.Warnw("upload_rejected", "verb", f.Verb, "name", f.Name, "declared", f.Expected, "drained", n)
		return replyTooLarge
	}

	switch f.Verb {
	case VerbPutProfile:
		data, err := io.ReadAll(f.Body(r))
		if err != nil || !f.Complete() {
			d.log.Warnw("upload_incomplete", "name", f.Name, "received", f.Received, "expected", f.Expected, "err", err)
			return replyIncomplete
		}
		if err := d.svc.Profiles.Save(ctx, f.Name, string(data)); err != nil {
			return fmt.Sprintf("ERROR: %v\n", err)
		}
		return fmt.Sprintf("OK: profile %s saved (%d bytes)\n", f.Name, len(data))
	default:
		skin, err := d.svc.Install(ctx, f.Body(r), f.Expected)
		if errors.Is(err, installer.ErrIncompleteUpload) {
			return replyIncomplete
		}
		if err != nil {
			return fmt.Sprintf("ERROR: install failed: %v\n", err)
		}
		return fmt.Sprintf("OK: installed %s\n", skin.ID)
	}
}

// knownVerbs keeps the commands_total label set bounded.
var knownVerbs = map[string]bool{
	"status": true, "limits": true, "zones": true, "version": true,
	"quit": true, "shutdown": true, "restart": true,
	"set-safe-max": true, "set-safe-min": true, "set-temp-max": true,
	"set-thermal-zone": true, "set-use-avg-temp": true,
	"set-excluded-types": true, "get-excluded-types": true,
	"get-profile": true, verbWriteB64: true, "list-profiles": true, "load-profile": true,
	"list-skins": true, "activate-skin": true, "deactivate-skin": true, "remove-skin": true,
}

func (d *Dispatcher) run(ctx context.Context, verb, arg string) string {
	if !knownVerbs[verb] {
		d.metrics.Command(protoName, "unknown")
		d.log.Debugw("unknown_command", "verb", verb)
		return replyUnknown
	}
	d.metrics.Command(protoName, verb)

	switch verb {
	case "status":
		if arg == "json" {
			return toJSON(d.svc.Status())
		}
		return statusText(d.svc.Status())
	case "limits":
		l := d.svc.Limits()
		if arg == "json" {
			return toJSON(l)
		}
		return fmt.Sprintf("min_freq: %d kHz\nmax_freq: %d kHz\ntemp_sensor: %s\n", l.MinFreq, l.MaxFreq, l.TempSensor)
	case "zones":
		return d.zones(arg == "json")
	case "version":
		return fmt.Sprintf("cpu_throttle version %s\n", d.svc.Version())
	case "quit", "shutdown":
		d.svc.Shutdown(ctx)
		return "OK: Shutting down\n"
	case "restart":
		d.svc.Restart(ctx)
		return "OK: Restarting\n"

	case "set-safe-max":
		v, ok := number(arg)
		if !ok {
			return replyUnknown
		}
		return fmt.Sprintf("OK: safe_max set to %d kHz\n", d.svc.SetSafeMax(ctx, v))
	case "set-safe-min":
		v, ok := number(arg)
		if !ok {
			return replyUnknown
		}
		return fmt.Sprintf("OK: safe_min set to %d kHz\n", d.svc.SetSafeMin(ctx, v))
	case "set-temp-max":
		v, ok := number(arg)
		if !ok {
			return replyUnknown
		}
		if err := d.svc.SetTempMax(ctx, v); err != nil {
			return fmt.Sprintf("ERROR: temp_max must be %d-%d°C\n", models.TempMaxLow, models.TempMaxHigh)
		}
		return fmt.Sprintf("OK: temp_max set to %d°C\n", v)
	case "set-thermal-zone":
		v, ok := number(arg)
		if !ok {
			return replyUnknown
		}
		if err := d.svc.SetThermalZone(ctx, v); err != nil {
			return fmt.Sprintf("ERROR: thermal_zone must be %d..%d\n", models.AutoZone, models.MaxZoneIndex)
		}
		return fmt.Sprintf("OK: thermal_zone set to %d\n", v)
	case "set-use-avg-temp":
		if arg != "0" && arg != "1" {
			return replyUnknown
		}
		d.svc.SetUseAvgTemp(ctx, arg == "1")
		return fmt.Sprintf("OK: use_avg_temp set to %s\n", arg)
	case "set-excluded-types":
		return fmt.Sprintf("OK: excluded_types set to %s\n", typesText(d.svc.SetExcludedTypes(ctx, arg)))
	case "get-excluded-types":
		return typesText(d.svc.ExcludedTypes()) + "\n"
	}

	if arg == "" && verb != "list-profiles" && verb != "list-skins" {
		return replyUnknown
	}
	switch verb {
	case "get-profile":
		content, err := d.svc.Get(arg)
		if err != nil {
			return replyNoProfile
		}
		return content
	case verbWriteB64:
		name, enc, ok := strings.Cut(arg, " ")
		if !ok || name == "" {
			return replyUnknown
		}
		switch err := d.svc.SaveBase64(ctx, name, strings.TrimSpace(enc)); {
		case errors.Is(err, service.ErrInvalidBase64):
			return "ERROR: invalid base64\n"
		case errors.Is(err, service.ErrPayloadTooLarge):
			return replyTooLarge
		case err != nil:
			return fmt.Sprintf("ERROR: %v\n", err)
		}
		return fmt.Sprintf("OK: profile %s saved\n", name)
	case "list-profiles":
		names, err := d.svc.Profiles.List()
		if err != nil {
			return fmt.Sprintf("ERROR: %v\n", err)
		}
		if arg == "json" {
			return toJSON(names)
		}
		if len(names) == 0 {
			return ""
		}
		return strings.Join(names, "\n") + "\n"
	case "load-profile":
		switch _, err := d.svc.Load(ctx, arg); {
		case errors.Is(err, repository.ErrNotFound):
			return replyNoProfile
		case errors.Is(err, service.ErrOutOfRange):
			return fmt.Sprintf("ERROR: temp_max must be %d-%d°C\n", models.TempMaxLow, models.TempMaxHigh)
		case err != nil:
			return fmt.Sprintf("ERROR: %v\n", err)
		}
		return fmt.Sprintf("OK: profile %s loaded\n", arg)
	case "list-skins":
		return d.listSkins(arg == "json")
	case "activate-skin":
		if err := d.svc.Activate(ctx, arg); err != nil {
			return skinError(arg, err)
		}
		return fmt.Sprintf("OK: skin %s activated\n", arg)
	case "deactivate-skin":
		if err := d.svc.Deactivate(ctx, arg); err != nil {
			return skinError(arg, err)
		}
		return fmt.Sprintf("OK: skin %s deactivated\n", arg)
	case "remove-skin":
		if err := d.svc.Skins.Remove(ctx, arg); err != nil {
			return skinError(arg, err)
		}
		return fmt.Sprintf("OK: skin %s removed\n", arg)
	}
	return replyUnknown
}

func (d *Dispatcher) zones(asJSON bool) string {
	zones, err := d.svc.Zones()
	if err != nil {
		return fmt.Sprintf("ERROR: %v\n", err)
	}
	if asJSON {
		return toJSON(zones)
	}
	var b strings.Builder
	for _, z := range zones {
		fmt.Fprintf(&b, "zone %d: %s %d°C", z.Index, z.Type, z.TempC)
		if z.Excluded {
			b.WriteString(" (excluded)")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (d *Dispatcher) listSkins(asJSON bool) string {
	skins, err := d.svc.Skins.List()
	if err != nil {
		return fmt.Sprintf("ERROR: %v\n", err)
	}
	if asJSON {
		return toJSON(skins)
	}
	var b strings.Builder
	for _, s := range skins {
		fmt.Fprintf(&b, "%s\t%s", s.ID, s.Name)
		if s.Active {
			b.WriteString(" (active)")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func statusText(s cpu_throttle.Status) string {
	return fmt.Sprintf("Temperature: %d°C\nCurrent Freq: %d kHz\nsafe_min: %d kHz\nsafe_max: %d kHz\ntemp_max: %d°C\n",
		s.Temperature, s.Frequency, s.SafeMin, s.SafeMax, s.TempMax)
}

func skinError(id string, err error) string {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrInvalidName):
		return fmt.Sprintf("ERROR: skin %s not found\n", id)
	case errors.Is(err, service.ErrSkinNotActive):
		return fmt.Sprintf("ERROR: skin %s is not active\n", id)
	}
	return fmt.Sprintf("ERROR: %v\n", err)
}

func typesText(types []string) string {
	if len(types) == 0 {
		return "none"
	}
	return strings.Join(types, ",")
}

// number parses a decimal argument. Anything else makes the command unknown.
func number(arg string) (int, bool) {
	v, err := strconv.Atoi(arg)
	return v, err == nil
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("ERROR: %v\n", err)
	}
	return string(b) + "\n"
}
