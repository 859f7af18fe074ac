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

package ppr_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fwessels/ppr"
)

func Example() {
	p, err := ppr.New(ppr.DefaultConfig(), ppr.WithLedger(ppr.NewLedger()))
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	input := strings.Join([]string{
		".def hello(world)",
		`   :< "Hello " .. world .. "!"`,
		".end",
		"hello(Foo)",
		"hello( Bar )",
		"",
	}, "\n")
	if err := p.Process(context.Background(), "greeting.txt", strings.NewReader(input), os.Stdout); err != nil {
		fmt.Println("Error:", err)
	}
	// Output:
	// Hello Foo!
	// Hello  Bar !
}

// Example_recursive shows a macro whose result is expanded again.
func Example_recursive() {
	p, err := ppr.New(ppr.DefaultConfig())
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	out, err := p.ProcessString(context.Background(), strings.Join([]string{
		".defR sum(num)",
		"   local n = tonumber(num)",
		"   if n > 2 then",
		`      :< "(+ sum(" .. (n-1) .. ") " .. n .. " )"`,
		"   else",
		`      :< "(+ 1 2 )"`,
		"   end",
		".end",
		"Some lisp: sum(5)",
	}, "\n"))
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println(out)
	// Output:
	// Some lisp: (+ (+ (+ (+ 1 2 ) 3 ) 4 ) 5 )
}

// Example_error shows how failures are positioned in the document.
func Example_error() {
	p, err := ppr.New(ppr.DefaultConfig())
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	for _, input := range []string{
		"\n.def HE(name)\n :< 'Hello ' .. name \n.end\nHE(A,B)",
		"\n\n.def HE(name)\n :< 'Hello ' .. name \n.end\nHE(",
	} {
		_, err := p.ProcessString(context.Background(), input)
		fmt.Println("Error:", err)
	}
	// Output:
	// Error: Ppr error (HE:5):2: invalid number of argument: got 2, but expecting 1.
	// Error: Ppr error (HE:6) incomplete arguments in macro call.
}

func TestErrorKinds(t *testing.T) {
	cfg := ppr.DefaultConfig()
	cfg.Keywords.Else = cfg.Keywords.Endif
	_, err := ppr.New(cfg)
	if !errors.Is(err, ppr.ErrConfiguration) {
		t.Errorf("got %v, want a configuration error", err)
	}

	p, err := ppr.New(ppr.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.ProcessString(context.Background(), ".do error('x')\n")
	var e *ppr.Error
	if !errors.As(err, &e) || !errors.Is(err, ppr.ErrEvaluation) {
		t.Errorf("got %v, want an evaluation error", err)
	}
	var f *ppr.Failure
	if !errors.As(err, &f) || f.Message != "x" {
		t.Errorf("got %v, want the script failure", err)
	}
}

func TestLuaTimeout(t *testing.T) {
	p, err := ppr.New(ppr.DefaultConfig(), ppr.WithEngine(ppr.NewLuaEngine(ppr.LuaTimeout(50*time.Millisecond))))
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.ProcessString(context.Background(), ".do while true do end\n")
	if !errors.Is(err, ppr.ErrEvaluation) {
		t.Errorf("got %v, want an evaluation error", err)
	}
}
