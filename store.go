package bluequery

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// KeyStore persists the storable part of a query under its derived key.
type KeyStore interface {
	Save(ctx context.Context, key, query string) error
	Load(ctx context.Context, key string) (string, error)
}

// Options are fixed for the lifetime of a Parameters.
type Options struct {
	// EncodeURLs percent-encodes values in generated queries.
	EncodeURLs bool
	// URLMaxLength is the query length above which RequestURL replaces the
	// storable parameters with a derived key. 0 disables the switch.
	URLMaxLength int
	// KeyStore enables derived key persistence. May be nil.
	KeyStore KeyStore
	Logger   *slog.Logger
}

// Parameters holds the validated parameter values of one request.
//
// A Parameters is not safe for concurrent use; create one per request.
type Parameters struct {
	reg    *Registry
	values map[string]Value
	loaded bool

	encodeURL    bool
	urlMaxLength int
	keyStore     KeyStore
	log          *slog.Logger
}

// New returns an uninitialized Parameters bound to reg. Call Load before
// anything else.
func New(reg *Registry, opts Options) *Parameters {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Parameters{
		reg:          reg,
		values:       make(map[string]Value),
		encodeURL:    opts.EncodeURLs,
		urlMaxLength: opts.URLMaxLength,
		keyStore:     opts.KeyStore,
		log:          logger,
	}
}

// Parse is New followed by Load.
func Parse(reg *Registry, raw string, opts Options) (*Parameters, error) {
	p := New(reg, opts)
	if err := p.Load(raw); err != nil {
		return nil, err
	}
	return p, nil
}

// Registry returns the catalog p was built with.
func (p *Parameters) Registry() *Registry { return p.reg }

// Loaded reports whether Load has succeeded.
func (p *Parameters) Loaded() bool { return p.loaded }

// EncodeURLs reports whether generated queries are percent-encoded.
func (p *Parameters) EncodeURLs() bool { return p.encodeURL }

// Load replaces the content of p with the known parameters of raw, a query
// string without the leading '?'. Pass "" for an empty set.
// On error p is left as it was.
func (p *Parameters) Load(raw string) error {
	values := make(map[string]Value)
	if err := p.loadInto(values, parseQuery(raw, true), func(*Definition) bool { return true }); err != nil {
		return err
	}
	p.values = values
	p.loaded = true
	return nil
}

// LoadFromRequest loads the query component of r.
func (p *Parameters) LoadFromRequest(ctx context.Context, r *http.Request) error {
	return p.LoadRequest(ctx, r.URL.RawQuery)
}

// LoadRequest is Load, except that when raw carries a derived key and a
// KeyStore is configured, storable parameters are restored from the query
// saved under that key and only non-storable ones are read from raw.
func (p *Parameters) LoadRequest(ctx context.Context, raw string) error {
	q := parseQuery(raw, true)

	keyDef := p.reg.Key()
	key := ""
	if keyDef != nil && p.keyStore != nil {
		if k, ok := q.get(keyDef.Name).First(); ok {
			key = strings.TrimSpace(k)
		}
	}
	if key == "" {
		return p.Load(raw)
	}

	if _, err := Secure(key, keyDef); err != nil {
		return err
	}
	stored, err := p.keyStore.Load(ctx, key)
	if err != nil {
		return &ParamError{Kind: NotStorable, Param: keyDef.Name, Err: err}
	}
	p.log.Debug("restoring storable parameters", slog.String("key", key))

	values := make(map[string]Value)
	storable := func(d *Definition) bool { return p.reg.storable.Contains(d.Name) }
	if err := p.loadInto(values, parseQuery(stored, true), storable); err != nil {
		return errors.Wrapf(err, "stored query for key %s", key)
	}
	nonStorable := func(d *Definition) bool { return !p.reg.storable.Contains(d.Name) }
	if err := p.loadInto(values, q, nonStorable); err != nil {
		return err
	}
	values[keyDef.Name] = ScalarValue(key)

	p.values = values
	p.loaded = true
	return nil
}

func (p *Parameters) loadInto(dst map[string]Value, q *queryValues, include func(*Definition) bool) error {
	for _, d := range p.reg.List() {
		if !include(d) {
			continue
		}
		matched := q.get(d.Name)
		if matched.IsAbsent() {
			continue
		}
		if !d.AllowsMultipleValues && matched.Shape() == List {
			return newParamError(MultipleValuesNotAllowed, d.Name)
		}

		raw := matched.Strings()
		secured := make([]string, 0, len(raw))
		for _, v := range raw {
			s, err := Secure(v, d)
			if err != nil {
				return err
			}
			if s == "" {
				continue
			}
			secured = append(secured, s)
		}
		dst[d.Name] = valueOf(secured)
	}
	return nil
}

func (p *Parameters) checkLoaded(op string) error {
	if !p.loaded {
		return errors.Wrap(newParamError(NotLoaded, ""), op)
	}
	return nil
}

// AddValue secures value and appends it to d. A parameter that does not
// allow multiple values fails if it already holds one. Adding to a storable
// parameter clears the derived key.
func (p *Parameters) AddValue(d *Definition, value string) error {
	if err := p.checkLoaded("add value"); err != nil {
		return err
	}
	v, err := Secure(value, d)
	if err != nil {
		return err
	}

	cur := p.values[d.Name]
	if !d.AllowsMultipleValues && !cur.IsAbsent() {
		return newParamError(MultipleValuesNotAllowed, d.Name)
	}
	p.values[d.Name] = valueOf(append(cur.Strings(), v))

	if d.IsStorable {
		if key := p.reg.Key(); key != nil {
			if _, ok := p.values[key.Name]; ok {
				p.log.Debug("derived key cleared", slog.String("param", d.Name))
			}
			delete(p.values, key.Name)
		}
	}
	return nil
}

// AddValues calls AddValue for each value, stopping at the first error.
func (p *Parameters) AddValues(d *Definition, values ...string) error {
	for _, v := range values {
		if err := p.AddValue(d, v); err != nil {
			return err
		}
	}
	return nil
}

// GetValues returns exactly what is stored for d. An absent Value is
// returned when nothing is stored. A Parameters that has not been loaded
// holds nothing, so it also returns absent; check Loaded to tell the two
// apart.
func (p *Parameters) GetValues(d *Definition) Value {
	return p.values[d.Name]
}

// GetFirstValue returns the stored scalar or the first list element. Like
// GetValues it reports false on a Parameters that has not been loaded.
func (p *Parameters) GetFirstValue(d *Definition) (string, bool) {
	return p.values[d.Name].First()
}

// ResetValues clears the value stored for d.
func (p *Parameters) ResetValues(d *Definition) error {
	if err := p.checkLoaded("reset values"); err != nil {
		return err
	}
	delete(p.values, d.Name)
	return nil
}

// ToURL builds the canonical query string of every stored value, in registry
// order, joined by separator.
func (p *Parameters) ToURL(separator string) (string, error) {
	if err := p.checkLoaded("to url"); err != nil {
		return "", err
	}
	return p.build(p.reg.List(), separator, p.encodeURL), nil
}

func (p *Parameters) build(defs []*Definition, separator string, encode bool) string {
	return buildQuery(defs, p.GetValues, separator, encode)
}

func (p *Parameters) filter(storable bool) []*Definition {
	var out []*Definition
	for _, d := range p.reg.List() {
		if p.reg.storable.Contains(d.Name) == storable {
			out = append(out, d)
		}
	}
	return out
}

// StorableQuery builds the unencoded '&'-joined query of the storable
// parameters only. This is the input of the derived key.
func (p *Parameters) StorableQuery() (string, error) {
	if err := p.checkLoaded("storable query"); err != nil {
		return "", err
	}
	return p.build(p.filter(true), "&", false), nil
}

// GenerateKey derives the key from the storable parameters and stores it in
// the key parameter, replacing any previous value. When no storable
// parameter is set the current key is left untouched.
func (p *Parameters) GenerateKey() (string, error) {
	keyDef := p.reg.Key()
	if keyDef == nil {
		return "", newParamError(NotStorable, "")
	}
	q, err := p.StorableQuery()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(q) == "" {
		k, _ := p.GetFirstValue(keyDef)
		return k, nil
	}

	sum := sha1.Sum([]byte(strings.ToLower(q)))
	key := hex.EncodeToString(sum[:])

	delete(p.values, keyDef.Name)
	if err := p.AddValue(keyDef, key); err != nil {
		return "", err
	}
	p.log.Debug("derived key generated", slog.String("key", key))
	return key, nil
}

// persistKey regenerates the key and saves the storable query under it.
// It returns false, and saves nothing, when no storable parameter is set: a
// key that was not derived here is never written.
func (p *Parameters) persistKey(ctx context.Context) (bool, error) {
	query := p.build(p.filter(true), "&", true)
	if strings.TrimSpace(query) == "" {
		return false, nil
	}
	key, err := p.GenerateKey()
	if err != nil {
		return false, err
	}

	if err := p.keyStore.Save(ctx, key, query); err != nil {
		return false, &ParamError{Kind: NotStorable, Param: p.reg.Key().Name, Err: err}
	}
	return true, nil
}

// RequestURL builds the query to send back to clients. When a derived key is
// already set, or when the full query would exceed the configured maximum
// length, the storable parameters are saved in the KeyStore and replaced by
// the key.
func (p *Parameters) RequestURL(ctx context.Context, separator string) (string, error) {
	if err := p.checkLoaded("request url"); err != nil {
		return "", err
	}
	keyDef := p.reg.Key()
	if keyDef == nil || p.keyStore == nil {
		return p.build(p.reg.List(), separator, p.encodeURL), nil
	}

	if k, ok := p.GetFirstValue(keyDef); ok && strings.TrimSpace(k) != "" {
		if _, err := p.persistKey(ctx); err != nil {
			return "", err
		}
		return p.build(p.filter(false), separator, p.encodeURL), nil
	}

	full := p.build(p.reg.List(), separator, p.encodeURL)
	if p.urlMaxLength <= 0 || len(full) <= p.urlMaxLength {
		return full, nil
	}

	stored, err := p.persistKey(ctx)
	if err != nil {
		return "", err
	}
	if !stored {
		return full, nil
	}
	return p.build(p.filter(false), separator, p.encodeURL), nil
}

func (p *Parameters) clone(include func(*Definition) bool) (*Parameters, error) {
	if err := p.checkLoaded("clone"); err != nil {
		return nil, err
	}
	c := &Parameters{
		reg:          p.reg,
		values:       make(map[string]Value, len(p.values)),
		loaded:       true,
		encodeURL:    p.encodeURL,
		urlMaxLength: p.urlMaxLength,
		keyStore:     p.keyStore,
		log:          p.log,
	}
	for _, d := range p.reg.List() {
		if v, ok := p.values[d.Name]; ok && include(d) {
			c.values[d.Name] = v
		}
	}
	return c, nil
}

// CloneAll returns an independent copy of p.
func (p *Parameters) CloneAll() (*Parameters, error) {
	return p.clone(func(*Definition) bool { return true })
}

// CloneStorable returns a copy holding only the storable parameters and the
// derived key.
func (p *Parameters) CloneStorable() (*Parameters, error) {
	key := p.reg.Key()
	return p.clone(func(d *Definition) bool {
		return p.reg.storable.Contains(d.Name) || d == key
	})
}
