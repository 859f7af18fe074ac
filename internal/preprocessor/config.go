package preprocessor

import (
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/nickwells/filecheck.mod/filecheck"
	"github.com/sirupsen/logrus"

	"github.com/fwessels/ppr/internal/keyword"
	"github.com/fwessels/ppr/internal/script"
)

// Keywords holds the directive keyword of every role.
type Keywords struct {
	Apply   string `mapstructure:"apply"`
	ApplyR  string `mapstructure:"applyR"`
	Define  string `mapstructure:"define"`
	DefineR string `mapstructure:"defineR"`
	Assign  string `mapstructure:"assign"`
	Load    string `mapstructure:"load"`
	Require string `mapstructure:"require"`
	If      string `mapstructure:"if"`
	Else    string `mapstructure:"else"`
	Endif   string `mapstructure:"endif"`
	End     string `mapstructure:"end"`
}

// Config is the construction time configuration of a Preprocessor.
type Config struct {
	Keywords Keywords `mapstructure:"keywords"`
	// Separator is a regular expression matching one character that may
	// bound a macro invocation.
	Separator string `mapstructure:"separator"`
	// Expand marks where a body line appends to the macro result.
	Expand string `mapstructure:"expand"`
	Glue   string `mapstructure:"glue"`
	Escape string `mapstructure:"escape"`
	// IncludeDirs are searched in order by load and require macros.
	IncludeDirs []string          `mapstructure:"include"`
	Params      map[string]string `mapstructure:"params"`
	// MaxDepth bounds nested expansions and inclusions. Zero disables the
	// limit.
	MaxDepth int `mapstructure:"max-depth"`
}

// DefaultConfig returns the default keywords and markers.
func DefaultConfig() Config {
	return Config{
		Keywords: Keywords{
			Apply:   ".do",
			ApplyR:  ".doR",
			Define:  ".def",
			DefineR: ".defR",
			Assign:  ".assign",
			Load:    ".load",
			Require: ".require",
			If:      ".if",
			Else:    ".else",
			Endif:   ".endif",
			End:     ".end",
		},
		Separator:   keyword.DefaultPattern,
		Expand:      ":<",
		Glue:        "##",
		Escape:      `\`,
		IncludeDirs: []string{"."},
		MaxDepth:    64,
	}
}

type role int

const (
	roleApply role = iota
	roleApplyR
	roleDefine
	roleDefineR
	roleAssign
	roleLoad
	roleRequire
	roleIf
	roleElse
	roleEndif
	roleEnd
)

var roleNames = [...]string{"apply", "applyR", "define", "defineR", "assign", "load", "require", "if", "else", "endif", "end"}

func (r role) String() string { return roleNames[r] }

type directive struct {
	keyword string
	role    role
}

func (k Keywords) directives() []directive {
	return []directive{
		{k.Apply, roleApply},
		{k.ApplyR, roleApplyR},
		{k.Define, roleDefine},
		{k.DefineR, roleDefineR},
		{k.Assign, roleAssign},
		{k.Load, roleLoad},
		{k.Require, roleRequire},
		{k.If, roleIf},
		{k.Else, roleElse},
		{k.Endif, roleEndif},
		{k.End, roleEnd},
	}
}

// keyword returns the keyword configured for r.
func (k Keywords) keyword(r role) string {
	for _, d := range k.directives() {
		if d.role == r {
			return d.keyword
		}
	}
	return ""
}

// beginDirectives returns the keywords opening a macro definition in
// descending order.
func (k Keywords) beginDirectives() []directive {
	var ds []directive
	for _, d := range k.directives() {
		switch d.role {
		case roleElse, roleEndif, roleEnd:
			continue
		}
		ds = append(ds, d)
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].keyword > ds[j].keyword })
	return ds
}

var reParamName = regexp.MustCompile(`^[A-Za-z_]\w*$`)

func (c *Config) validate() error {
	ds := c.Keywords.directives()
	for _, d := range ds {
		if d.keyword == "" {
			return configError("keyword for %s must not be empty.", d.role)
		}
	}
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].keyword < ds[j].keyword })
	for i := 0; i+1 < len(ds); i++ {
		if ds[i].keyword == ds[i+1].keyword {
			return configError("'%s:%s' and '%s:%s' keywords must be different.",
				ds[i].role, ds[i].keyword, ds[i+1].role, ds[i+1].keyword)
		}
	}

	if c.Expand == "" {
		return configError("expand token must not be empty.")
	}
	if utf8.RuneCountInString(c.Escape) != 1 {
		return configError("escape must be a single character, got %q.", c.Escape)
	}
	if c.MaxDepth < 0 {
		return configError("maximum depth must not be negative, got %d.", c.MaxDepth)
	}
	for name := range c.Params {
		if !reParamName.MatchString(name) {
			return configError("invalid parameter name %q.", name)
		}
	}

	exists := filecheck.Provisos{Existence: filecheck.MustExist}
	for _, dir := range c.IncludeDirs {
		if err := exists.StatusCheck(dir); err != nil {
			return &Error{Kind: ErrConfiguration, Msg: "include directory: " + err.Error(), Err: err}
		}
	}
	return nil
}

// Option configures the collaborators of a Preprocessor.
type Option func(p *Preprocessor) error

// WithEngine sets the engine that evaluates macro bodies. The default is a
// sandboxed Lua interpreter.
func WithEngine(e script.Engine) Option {
	return func(p *Preprocessor) error {
		if e == nil {
			return configError("engine must not be nil.")
		}
		p.engine = e
		return nil
	}
}

// WithLedger sets the ledger of required files. The default is the process
// wide ledger returned by SharedLedger.
func WithLedger(l *Ledger) Option {
	return func(p *Preprocessor) error {
		if l == nil {
			return configError("ledger must not be nil.")
		}
		p.ledger = l
		return nil
	}
}

// WithLogger sets the logger used for debug traces.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Preprocessor) error {
		if l == nil {
			return configError("logger must not be nil.")
		}
		p.log = l
		return nil
	}
}
