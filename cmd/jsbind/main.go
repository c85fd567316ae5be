package main

import (
	"flag"
	"fmt"
	"os"
	"slices"

	"go.uber.org/zap"

	"jsbind/pkg/interop"
	"jsbind/pkg/intl"
	"jsbind/pkg/vm"
)

func main() {
	configFlag := flag.String("config", "", "Load bridge settings from the given TOML file")
	localeFlag := flag.String("locale", "", "BCP 47 locale for -format, -sort and -plural (default en-US)")
	formatFlag := flag.Bool("format", false, "Format each argument with Intl.NumberFormat")
	partsFlag := flag.Bool("parts", false, "With -format, print formatToParts output instead")
	percentFlag := flag.Bool("percent", false, "With -format, use the percent style")
	sortFlag := flag.Bool("sort", false, "Sort the arguments with Intl.Collator")
	numericFlag := flag.Bool("numeric", false, "With -sort, compare digit runs numerically")
	sensitivityFlag := flag.String("sensitivity", "variant", "With -sort, collator sensitivity")
	pluralFlag := flag.Bool("plural", false, "Print the plural category of each argument")
	ordinalFlag := flag.Bool("ordinal", false, "With -plural, use ordinal rules")
	reFlag := flag.String("re", "", "Run the given regular expression against each argument")
	reFlagsFlag := flag.String("flags", "", "With -re, regular expression flags (gimsy)")
	cacheStatsFlag := flag.Bool("cache-stats", false, "Show identity cache statistics on exit")

	flag.Parse()

	cfg := interop.DefaultConfig()
	if *configFlag != "" {
		var err error
		if cfg, err = interop.LoadConfig(*configFlag); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(64) // Exit code 64: command line usage error
		}
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(70) // Exit code 70: internal software error
	}
	defer logger.Sync()
	interop.SetLogger(logger)

	bridge, err := interop.NewBridge(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(64)
	}

	locale := vm.Undefined
	if *localeFlag != "" {
		locale = vm.NewString(*localeFlag)
	}
	args := flag.Args()

	switch {
	case *formatFlag:
		style := "decimal"
		if *percentFlag {
			style = "percent"
		}
		err = runFormat(bridge, locale, style, *partsFlag, args)
	case *sortFlag:
		err = runSort(bridge, locale, *sensitivityFlag, *numericFlag, args)
	case *pluralFlag:
		kind := "cardinal"
		if *ordinalFlag {
			kind = "ordinal"
		}
		err = runPlural(bridge, locale, kind, args)
	case *reFlag != "":
		err = runRegExp(bridge, *reFlag, *reFlagsFlag, args)
	default:
		fmt.Fprintf(os.Stderr, "Usage: jsbind [-config file] (-format | -sort | -plural | -re pattern) args...\n")
		os.Exit(64)
	}

	if *cacheStatsFlag {
		s := bridge.Cache().Stats()
		fmt.Fprintf(os.Stderr, "cache: %d entries, %d hits, %d misses, %d stale, %d evicted\n",
			s.Entries, s.Hits, s.Misses, s.Stale, s.Evicted)
	}
	if err != nil {
		logger.Error("command failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(70)
	}
}

func options(b *interop.Bridge, kv map[string]any) vm.Value {
	o := vm.NewObject(vm.ObjectPrototype)
	for k, v := range kv {
		o.SetOwnStr(k, b.ToValue(v))
	}
	return o.Value()
}

func runFormat(b *interop.Bridge, locale vm.Value, style string, parts bool, args []string) error {
	nf, err := intl.NewNumberFormat(locale, options(b, map[string]any{"style": style}))
	if err != nil {
		return err
	}
	for _, a := range args {
		x := vm.NewNumber(vm.StringToNumber(a))
		if !parts {
			s, err := nf.Format(x)
			if err != nil {
				return err
			}
			fmt.Println(s.AsString())
			continue
		}
		arr, err := nf.FormatToParts(x)
		if err != nil {
			return err
		}
		fmt.Println(b.Export(arr))
	}
	return nil
}

func runSort(b *interop.Bridge, locale vm.Value, sensitivity string, numeric bool, args []string) error {
	c, err := intl.NewCollator(locale, options(b, map[string]any{
		"sensitivity": sensitivity,
		"numeric":     numeric,
	}))
	if err != nil {
		return err
	}
	words := slices.Clone(args)
	slices.SortStableFunc(words, func(x, y string) int {
		r, _ := c.Compare(vm.NewString(x), vm.NewString(y))
		return int(r.AsFloat())
	})
	for _, w := range words {
		fmt.Println(w)
	}
	return nil
}

func runPlural(b *interop.Bridge, locale vm.Value, kind string, args []string) error {
	pr, err := intl.NewPluralRules(locale, options(b, map[string]any{"type": kind}))
	if err != nil {
		return err
	}
	for _, a := range args {
		form, err := pr.Select(vm.NewNumber(vm.StringToNumber(a)))
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", a, form.AsString())
	}
	return nil
}

func runRegExp(b *interop.Bridge, pattern, flags string, args []string) error {
	re, err := b.NewRegExp(pattern, flags)
	if err != nil {
		return err
	}
	global, _ := re.GetStr("global")
	for _, a := range args {
		if err := re.SetStr("lastIndex", vm.NewInt32(0)); err != nil {
			return err
		}
		for {
			m, err := re.Method("exec", vm.NewString(a))
			if err != nil {
				return err
			}
			if m.IsNull() {
				break
			}
			idx, _ := m.GetStr("index")
			fmt.Printf("%s\t%v\t%v\n", a, b.Export(idx), b.Export(m))
			if !global.ToBoolean() {
				break
			}
			if whole, _ := m.Get(vm.IndexKey(0)); whole.AsString() == "" {
				li, _ := re.GetStr("lastIndex")
				if err := re.SetStr("lastIndex", vm.NewNumber(li.AsFloat()+1)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
