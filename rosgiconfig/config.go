// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package rosgiconfig reads runtime settings from YAML.
//
// 	timeout: 2m
// 	logging:
// 	  level: info
// 	offset:
// 	  rounds: 4
// 	  refreshRounds: 2
// 	  refresh: 5m
// 	  expiry: 30m
// 	reconnect:
// 	  exponential:
// 	    first: 100ms
// 	    max: 30s
// 	listen:
// 	  - tcp://${HOST:0.0.0.0}:9278
// 	connect:
// 	  - tcp://primary:9278
// 	capabilities:
// 	  tcp://primary:9278#12:
// 	    policy: failover
// 	    alternates:
// 	      - tcp://backup:9278#7
// 	transports:
// 	  tcp:
// 	    dialTimeout: 5s
//
// Strings in listen, connect and alternates may reference environment
// variables as ${NAME} or ${NAME:default}.
package rosgiconfig

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"time"

	"github.com/saces/r-osgi-sub000/api/capability"
	"github.com/saces/r-osgi-sub000/api/channel"
	"github.com/saces/r-osgi-sub000/endpoint"
	"github.com/saces/r-osgi-sub000/internal/config"
	"github.com/saces/r-osgi-sub000/internal/interpolate"
	"github.com/saces/r-osgi-sub000/rosgierrors"
	"github.com/saces/r-osgi-sub000/timeoffset"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

// Attributes holds the settings of one transport until the transport
// decodes them.
type Attributes = config.AttributeMap

// Config holds the runtime settings.
type Config struct {
	Timeout      time.Duration         `config:"timeout"`
	Logging      Logging               `config:"logging"`
	Offset       Offset                `config:"offset"`
	Reconnect    Backoff               `config:"reconnect"`
	Listen       []string              `config:"listen,interpolate"`
	Connect      []string              `config:"connect,interpolate"`
	Capabilities map[string]Capability `config:"capabilities"`
	Transports   map[string]Attributes `config:"transports"`
}

// Offset configures the clock offset estimate kept for every peer.
type Offset struct {
	Rounds        int           `config:"rounds"`
	RefreshRounds int           `config:"refreshRounds"`
	Refresh       time.Duration `config:"refresh"`
	Expiry        time.Duration `config:"expiry"`
}

// Capability configures how calls to one capability are spread over
// redundant endpoints. Capabilities are keyed by their URI,
// <scheme>://<host:port>#<id>.
type Capability struct {
	Policy Policy `config:"policy"`

	// Alternates are capability URIs, <scheme>://<host:port>#<id>.
	Alternates []string `config:"alternates,interpolate"`
}

// Default returns the settings used for everything the YAML leaves out.
func Default() *Config {
	return &Config{
		Timeout: endpoint.DefaultTimeout,
		Offset: Offset{
			Rounds:        timeoffset.DefaultRounds,
			RefreshRounds: timeoffset.DefaultRefreshRounds,
			Refresh:       timeoffset.DefaultRefresh,
			Expiry:        timeoffset.DefaultExpiry,
		},
	}
}

type options struct {
	env interpolate.VariableResolver
}

// Option customizes Load and Decode.
type Option func(*options)

// Environment sets where variable references are looked up. Defaults to
// the process environment.
func Environment(lookup func(name string) (string, bool)) Option {
	return func(o *options) {
		o.env = lookup
	}
}

// Load reads YAML settings from r.
func Load(r io.Reader, opts ...Option) (*Config, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := yaml.Unmarshal(b, &data); err != nil {
		return nil, rosgierrors.InvalidArgumentErrorf("failed to parse YAML: %v", err)
	}
	if data == nil {
		return Decode(nil, opts...)
	}
	return Decode(data, opts...)
}

// Decode reads settings from data already parsed from YAML or JSON.
func Decode(data interface{}, opts ...Option) (*Config, error) {
	o := options{env: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := Default()
	if data != nil {
		if err := config.DecodeInto(cfg, data, config.InterpolateWith(o.env)); err != nil {
			return nil, rosgierrors.InvalidArgumentErrorf("failed to decode configuration: %v", err)
		}
		if err := cfg.expandCapabilityKeys(o.env); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandCapabilityKeys interpolates the capability URIs, which field hooks
// do not see since they are map keys.
func (c *Config) expandCapabilityKeys(env interpolate.VariableResolver) error {
	if len(c.Capabilities) == 0 {
		return nil
	}
	expanded := make(map[string]Capability, len(c.Capabilities))
	for key, capCfg := range c.Capabilities {
		uri, err := interpolate.Expand(key, env)
		if err != nil {
			return rosgierrors.InvalidArgumentErrorf("failed to interpolate capability %q: %v", key, err)
		}
		if _, dup := expanded[uri]; dup {
			return rosgierrors.InvalidArgumentErrorf("capability %q is configured twice", uri)
		}
		expanded[uri] = capCfg
	}
	c.Capabilities = expanded
	return nil
}

// Validate reports every problem with the settings in one InvalidArgument
// error.
func (c *Config) Validate() error {
	var errs error
	if c.Timeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("timeout must be positive, got %v", c.Timeout))
	}
	if c.Offset.Rounds < 1 || c.Offset.RefreshRounds < 1 {
		errs = multierr.Append(errs, fmt.Errorf(
			"offset rounds must be at least 1, got %d and %d", c.Offset.Rounds, c.Offset.RefreshRounds))
	}
	if c.Offset.Refresh <= 0 || c.Offset.Expiry < c.Offset.Refresh {
		errs = multierr.Append(errs, fmt.Errorf(
			"offset refresh must be positive and no later than expiry, got %v and %v", c.Offset.Refresh, c.Offset.Expiry))
	}
	if _, err := c.Reconnect.Strategy(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid reconnect backoff: %v", err))
	}
	for _, addr := range append(append([]string(nil), c.Listen...), c.Connect...) {
		if _, _, err := channel.SplitAddress(addr); err != nil {
			errs = multierr.Append(errs, errors.New(rosgierrors.FromError(err).Message()))
		}
	}
	for _, key := range c.capabilityURIs() {
		for _, uri := range append([]string{key}, c.Capabilities[key].Alternates...) {
			if err := validateURI(uri); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("capability %q: %v", key, err))
			}
		}
	}
	if errs != nil {
		return rosgierrors.Wrap(rosgierrors.CodeInvalidArgument, errs)
	}
	return nil
}

func validateURI(uri string) error {
	addr, _, err := capability.SplitURI(uri)
	if err == nil {
		_, _, err = channel.SplitAddress(addr)
	}
	if err != nil {
		return errors.New(rosgierrors.FromError(err).Message())
	}
	return nil
}

// EndpointOptions turns the settings into options for every endpoint.
func (c *Config) EndpointOptions() []endpoint.Option {
	return []endpoint.Option{
		endpoint.Timeout(c.Timeout),
		endpoint.OffsetPolicy(c.Offset.Rounds, c.Offset.RefreshRounds, c.Offset.Refresh, c.Offset.Expiry),
	}
}
