/*
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package ppr is a line oriented text preprocessor whose macros are Lua
// snippets.
//
// A macro is defined between a begin keyword and .end, or on a single line:
//
//	.def hello(world) :< "Hello " .. world .. "!"
//	hello(Foo)
//
// expands to "Hello Foo!". The expand token :< appends the value of the
// expression following it to the macro result.
//
// Basic usage:
//
//	p, err := ppr.New(ppr.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	err = p.Process(ctx, "input.txt", in, out)
package ppr

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fwessels/ppr/internal/preprocessor"
	"github.com/fwessels/ppr/internal/script"
)

// Preprocessor holds macros and parameters across documents.
type Preprocessor = preprocessor.Preprocessor

// Config is the construction time configuration.
type Config = preprocessor.Config

// Keywords holds the directive keyword of every role.
type Keywords = preprocessor.Keywords

// Option configures the collaborators of a Preprocessor.
type Option = preprocessor.Option

// Macro is a parsed macro definition.
type Macro = preprocessor.Macro

// Ledger records the files loaded by require macros.
type Ledger = preprocessor.Ledger

// Error is the error returned by the preprocessor.
type Error = preprocessor.Error

// Engine turns macro bodies into scripts and evaluates them.
type Engine = script.Engine

// Failure is a script that failed to compile or run.
type Failure = script.Failure

// Error kinds.
var (
	ErrConfiguration  = preprocessor.ErrConfiguration
	ErrSyntax         = preprocessor.ErrSyntax
	ErrArity          = preprocessor.ErrArity
	ErrFileNotFound   = preprocessor.ErrFileNotFound
	ErrEvaluation     = preprocessor.ErrEvaluation
	ErrRecursionLimit = preprocessor.ErrRecursionLimit
)

// New returns a Preprocessor for cfg.
func New(cfg Config, opts ...Option) (*Preprocessor, error) {
	return preprocessor.New(cfg, opts...)
}

// DefaultConfig returns the default keywords and markers.
func DefaultConfig() Config { return preprocessor.DefaultConfig() }

// NewLedger returns an empty ledger.
func NewLedger() *Ledger { return preprocessor.NewLedger() }

// SharedLedger returns the process wide ledger.
func SharedLedger() *Ledger { return preprocessor.SharedLedger() }

// WithEngine sets the engine evaluating macro bodies.
func WithEngine(e Engine) Option { return preprocessor.WithEngine(e) }

// WithLedger sets the ledger of required files.
func WithLedger(l *Ledger) Option { return preprocessor.WithLedger(l) }

// WithLogger sets the logger used for debug traces.
func WithLogger(l logrus.FieldLogger) Option { return preprocessor.WithLogger(l) }

// NewLuaEngine returns the sandboxed Lua engine.
func NewLuaEngine(opts ...script.LuaOption) Engine { return script.NewLua(opts...) }

// LuaTimeout bounds the running time of a single macro evaluation.
func LuaTimeout(d time.Duration) script.LuaOption { return script.Timeout(d) }
