package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/emergence75/ruffle-clone/avm2"
	"github.com/emergence75/ruffle-clone/avm2/abc"
	"github.com/emergence75/ruffle-clone/avm2/globals"
	"github.com/emergence75/ruffle-clone/avm2/manifest"
	"github.com/emergence75/ruffle-clone/runtime"
	"github.com/pterm/pterm"

	"github.com/npillmayer/schuko/gconf"
	"github.com/npillmayer/schuko/schukonf/koanfadapter"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
)

/*
License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/

// traceKeys are the trace keys of all packages taking part in a session.
var traceKeys = []string{
	"ruffle.runtime",
	"ruffle.avm2",
	"ruffle.abc",
	"ruffle.globals",
	"ruffle.manifest",
	"ruffle.shell",
}

// main() starts an interactive shell, where users may load program manifests
// and call methods. Results are printed, uncaught errors are printed with
// their stack trace.
//
func main() {
	initDisplay()
	tlevel := flag.String("trace", "Info", "Trace level [Debug|Info|Error]")
	loadf := flag.String("load", "", "Manifest to load at start")
	flag.Parse()
	if err := initConfig(*tlevel); err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
	pterm.Info.Println("Welcome to avm2sh")
	tracer().Infof("Trace level is %s", *tlevel)
	//
	sh, err := NewShell(os.Stdout)
	if err != nil {
		tracer().Errorf("%v", err)
		os.Exit(2)
	}
	sh.repl, err = readline.New("avm2> ")
	if err != nil {
		tracer().Errorf("%v", err)
		os.Exit(3)
	}
	defer sh.repl.Close()
	if *loadf != "" {
		if err := sh.Load(*loadf); err != nil {
			pterm.Error.Println(err.Error())
			os.Exit(2)
		}
	}
	tracer().Infof("Quit with <ctrl>D")
	sh.REPL()
}

// initConfig sets up the application configuration and tracing. Trace levels
// for every package are set from level.
func initConfig(level string) error {
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	conf := koanfadapter.New(nil, "avm2sh", []string{"nt"})
	gconf.Initialize(conf) // loads defaults and configuration files
	conf.Set("trace.root", level)
	for _, key := range traceKeys {
		conf.Set("trace."+key, level)
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		return fmt.Errorf("configuring tracing: %w", err)
	}
	tracing.SetTraceSelector(trace2go.Selector())
	return nil
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.Info.Prefix = pterm.Prefix{
		Text:  "  >>",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "  Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// Shell is our interpreter object, holding a VM session.
type Shell struct {
	avm      *avm2.Avm2
	natives  globals.Registry
	programs []*runtime.Scope    // program scopes, in load order
	objects  []avm2.Object       // objects created by `new`, addressed as $1, $2, …
	last     *avm2.UncaughtError // last error reaching the shell
	repl     *readline.Instance
}

// NewShell creates a shell with a fresh session. Output of the trace native
// goes to out.
func NewShell(out io.Writer) (*Shell, error) {
	sh := &Shell{
		avm:     avm2.New(avm2.WithInterpreter(abc.NewMachine())),
		natives: globals.Natives(out),
	}
	if err := globals.Install(sh.avm, sh.natives); err != nil {
		return nil, err
	}
	tracer().P("session", sh.avm.ID()).Infof("session started")
	return sh, nil
}

// REPL starts interactive mode.
func (sh *Shell) REPL() {
	for {
		line, err := sh.repl.Readline()
		if err != nil { // io.EOF
			break
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		quit, err := sh.Eval(line)
		if err != nil {
			pterm.Error.Println(err.Error())
			continue
		}
		if quit {
			break
		}
	}
	println("Good bye!")
}

// Eval executes a command, given on a line by itself.
func (sh *Shell) Eval(line string) (bool, error) {
	words, err := splitLine(line)
	if err != nil || len(words) == 0 {
		return false, err
	}
	cmd, args := words[0], words[1:]
	tracer().Debugf("command %s %v", cmd, args)
	switch cmd {
	case "quit", "exit":
		return true, nil
	case "load":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: load FILE")
		}
		return false, sh.Load(args[0])
	case "call":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: call TARGET ARGS")
		}
		return false, sh.call(args[0], args[1:])
	case "new":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: new CLASS ARGS")
		}
		return false, sh.construct(args[0], args[1:])
	case "classes":
		sh.printClasses()
	case "stack":
		sh.printStack()
	case "stubs":
		sh.printStubs()
	default:
		return false, fmt.Errorf("unknown command %q", cmd)
	}
	return false, nil
}

// Load loads the manifest in file path and installs it.
func (sh *Shell) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	p, err := manifest.Load(f)
	if err != nil {
		return err
	}
	scope, err := p.Install(sh.avm, sh.natives)
	if err != nil {
		return err
	}
	sh.programs = append(sh.programs, scope)
	pterm.Success.Println(fmt.Sprintf("loaded program %s (%d classes, %d functions)",
		p.Name, len(p.Classes), len(p.Functions)))
	return nil
}

// --- Commands --------------------------------------------------------------

func (sh *Shell) call(target string, words []string) error {
	exec, err := sh.target(target)
	if err != nil {
		return err
	}
	args, err := sh.arguments(words)
	if err != nil {
		return err
	}
	v, err := sh.avm.Call(exec, nil, args)
	if err != nil {
		var uncaught *avm2.UncaughtError
		if errors.As(err, &uncaught) {
			sh.last = uncaught
			pterm.Error.Println(uncaught.Err.Error())
			pterm.Println(uncaught.Trace.String())
			return nil
		}
		return err
	}
	pterm.Info.Println(display(v))
	return nil
}

// target resolves "Class.method", "$N.method" or a function name to an
// executable.
func (sh *Shell) target(name string) (avm2.Executable, error) {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		owner, member := name[:i], name[i+1:]
		var obj avm2.Object
		if strings.HasPrefix(owner, "$") {
			o, err := sh.object(owner)
			if err != nil {
				return avm2.Executable{}, err
			}
			obj = o
		} else if c := sh.avm.ClassByName(owner); c != nil {
			obj = c
		} else {
			return avm2.Executable{}, fmt.Errorf("no class %s", owner)
		}
		if exec, ok := sh.avm.LookupMethod(obj, member); ok {
			return exec, nil
		}
		return avm2.Executable{}, fmt.Errorf("no method %s on %s", member, owner)
	}
	var tag *runtime.Tag
	for i := len(sh.programs) - 1; i >= 0 && tag == nil; i-- {
		tag, _ = sh.programs[i].ResolveTag(name)
	}
	if tag == nil {
		tag, _ = sh.avm.Globals().ResolveTag(name)
	}
	if tag != nil {
		if f, ok := tag.Value.(*avm2.FunctionObject); ok {
			return f.Executable(), nil
		}
	}
	return avm2.Executable{}, fmt.Errorf("no function %s", name)
}

func (sh *Shell) construct(className string, words []string) error {
	class := sh.avm.ClassByName(className)
	if class == nil {
		return fmt.Errorf("no class %s", className)
	}
	args, err := sh.arguments(words)
	if err != nil {
		return err
	}
	obj, err := class.Construct(sh.avm.RootActivation(), args)
	if err != nil {
		return err
	}
	sh.objects = append(sh.objects, obj)
	pterm.Info.Println(fmt.Sprintf("$%d = %s", len(sh.objects), display(obj)))
	return nil
}

func (sh *Shell) object(ref string) (avm2.Object, error) {
	n, err := strconv.Atoi(ref[1:])
	if err != nil || n < 1 || n > len(sh.objects) {
		return nil, fmt.Errorf("no object %s", ref)
	}
	return sh.objects[n-1], nil
}

func (sh *Shell) printClasses() {
	ll := pterm.LeveledList{}
	for _, c := range sh.avm.Classes() {
		def := c.Definition()
		text := def.Name().Qualified()
		if super, ok := def.SuperName(); ok {
			text += " extends " + super.Qualified()
		}
		ll = append(ll, pterm.LeveledListItem{Level: 0, Text: text})
		for _, t := range def.ClassTraits() {
			ll = append(ll, pterm.LeveledListItem{Level: 1, Text: "static " + t.String()})
		}
		for _, t := range def.InstanceTraits() {
			ll = append(ll, pterm.LeveledListItem{Level: 1, Text: t.String()})
		}
	}
	if len(ll) == 0 {
		pterm.Info.Println("no classes")
		return
	}
	root := pterm.NewTreeFromLeveledList(ll)
	pterm.DefaultTree.WithRoot(root).Render()
}

func (sh *Shell) printStack() {
	if sh.last == nil {
		pterm.Info.Println("no uncaught error")
		return
	}
	pterm.Error.Println(sh.last.Err.Error())
	pterm.Println(sh.last.Trace.String())
}

func (sh *Shell) printStubs() {
	stubs := sh.avm.Stubs()
	if len(stubs) == 0 {
		pterm.Info.Println("no stubs encountered")
		return
	}
	ll := pterm.LeveledList{}
	class := ""
	for _, s := range stubs {
		if s.Class != class {
			class = s.Class
			ll = append(ll, pterm.LeveledListItem{Level: 0, Text: class})
		}
		text := s.Member + " (" + s.Kind.String() + ")"
		if s.Specifics != "" {
			text += " with " + s.Specifics
		}
		ll = append(ll, pterm.LeveledListItem{Level: 1, Text: text})
	}
	root := pterm.NewTreeFromLeveledList(ll)
	pterm.DefaultTree.WithRoot(root).Render()
}

// --- Arguments -------------------------------------------------------------

// splitLine splits a command line into words. Double-quoted words may contain
// spaces and keep their quotes.
func splitLine(line string) ([]string, error) {
	var words []string
	var b strings.Builder
	quoted, escaped := false, false
	for _, r := range line {
		switch {
		case escaped:
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case !quoted && (r == ' ' || r == '\t'):
			if b.Len() > 0 {
				words = append(words, b.String())
				b.Reset()
			}
			continue
		}
		b.WriteRune(r)
	}
	if quoted {
		return nil, fmt.Errorf("unterminated string in %q", line)
	}
	if b.Len() > 0 {
		words = append(words, b.String())
	}
	return words, nil
}

func (sh *Shell) arguments(words []string) ([]avm2.Value, error) {
	args := make([]avm2.Value, len(words))
	for i, w := range words {
		v, err := sh.parseArg(w)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func (sh *Shell) parseArg(w string) (avm2.Value, error) {
	switch w {
	case "true":
		return avm2.Bool(true), nil
	case "false":
		return avm2.Bool(false), nil
	case "null":
		return avm2.Null, nil
	case "undefined":
		return avm2.Undefined, nil
	}
	if strings.HasPrefix(w, "$") {
		return sh.object(w)
	}
	if strings.HasPrefix(w, `"`) {
		s, err := strconv.Unquote(w)
		if err != nil {
			return nil, fmt.Errorf("malformed string %s", w)
		}
		return avm2.String(s), nil
	}
	if i, err := strconv.ParseInt(w, 10, 32); err == nil {
		return avm2.Int(i), nil
	}
	if f, err := strconv.ParseFloat(w, 64); err == nil {
		return avm2.Number(f), nil
	}
	return nil, fmt.Errorf("cannot read argument %s", w)
}

func display(v avm2.Value) string {
	if s, ok := v.(avm2.String); ok {
		return strconv.Quote(string(s))
	}
	if v == nil {
		return "undefined"
	}
	return avm2.ToString(v)
}
