// Command rejig applies a transformation spec to a JSON document.
//
// Specs are read from YAML or JSON files, or saved to and loaded from
// a local spec library by name:
//
//	rejig -s transform.yaml -i input.json
//	rejig -db specs.db -s transform.yaml -save clean-users
//	rejig -db specs.db -name clean-users -i input.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/rejig/rejig"
	"github.com/rejig/rejig/library"
	"github.com/rejig/rejig/schema"

	"github.com/jsccast/yaml"
)

func main() {

	var (
		specFilename = flag.String("s", "", "spec filename (YAML or JSON)")
		specName     = flag.String("name", "", "name of a spec in the library")
		inFilename   = flag.String("i", "", "source document filename (default stdin)")
		destFilename = flag.String("d", "", "optional starting destination filename")

		dbFilename = flag.String("db", "", "spec library filename")
		saveName   = flag.String("save", "", "save the spec under this name and exit")
		rmName     = flag.String("rm", "", "remove this spec from the library and exit")
		list       = flag.Bool("list", false, "list library spec names and exit")

		libFilename = flag.String("lib", "", "ECMAScript library for query expressions")

		validateOnly = flag.Bool("validate", false, "check the spec and exit")
		pretty       = flag.Bool("pretty", false, "indent the output")
		timeout      = flag.Duration("timeout", time.Minute, "processing deadline")
	)

	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var store *library.Store
	if *dbFilename != "" {
		store = library.NewStore(*dbFilename)
		if err := store.Open(ctx); err != nil {
			fatal("open %s: %v", *dbFilename, err)
		}
		defer store.Close(ctx)
	}

	switch {
	case *list:
		if store == nil {
			fatal("-list needs -db")
		}
		names, err := store.Names(ctx)
		if err != nil {
			fatal("list: %v", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return
	case *rmName != "":
		if store == nil {
			fatal("-rm needs -db")
		}
		if err := store.Delete(ctx, *rmName); err != nil {
			fatal("rm %s: %v", *rmName, err)
		}
		return
	}

	spec, err := getSpec(ctx, store, *specFilename, *specName)
	if err != nil {
		fatal("%v", err)
	}

	issues, err := schema.Validate(spec)
	if err != nil {
		fatal("validate: %v", err)
	}
	if *validateOnly {
		for _, issue := range issues {
			fmt.Println(issue)
		}
		if 0 < len(issues) {
			os.Exit(1)
		}
		return
	}
	for _, issue := range issues {
		fmt.Fprintf(os.Stderr, "warning: %s\n", issue)
	}

	if *saveName != "" {
		if store == nil {
			fatal("-save needs -db")
		}
		if err := store.Put(ctx, *saveName, spec); err != nil {
			fatal("save %s: %v", *saveName, err)
		}
		return
	}

	source, err := readDoc(*inFilename)
	if err != nil {
		fatal("source: %v", err)
	}

	var dest interface{}
	if *destFilename != "" {
		if dest, err = readDoc(*destFilename); err != nil {
			fatal("dest: %v", err)
		}
	}

	opts := &rejig.Options{}
	if *libFilename != "" {
		lib, err := ioutil.ReadFile(*libFilename)
		if err != nil {
			fatal("lib: %v", err)
		}
		opts.Library = string(lib)
	}

	result, err := rejig.New(opts).Apply(ctx, spec, source, dest)
	if err != nil {
		fatal("%v", err)
	}

	var js []byte
	if *pretty {
		js, err = json.MarshalIndent(&result, "", "  ")
	} else {
		js, err = json.Marshal(&result)
	}
	if err != nil {
		fatal("render: %v", err)
	}
	fmt.Printf("%s\n", js)
}

// getSpec reads a spec from a file or fetches it from the library.
func getSpec(ctx context.Context, store *library.Store, filename, name string) (interface{}, error) {
	switch {
	case filename != "" && name != "":
		return nil, fmt.Errorf("give either -s or -name, not both")
	case filename != "":
		src, err := ioutil.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		var spec interface{}
		if err = yaml.Unmarshal(src, &spec); err != nil {
			return nil, fmt.Errorf("parse %s: %v", filename, err)
		}
		return stringKeys(spec), nil
	case name != "":
		if store == nil {
			return nil, fmt.Errorf("-name needs -db")
		}
		return store.Get(ctx, name)
	}
	return nil, fmt.Errorf("need a spec (-s or -name)")
}

func readDoc(filename string) (interface{}, error) {
	var (
		src []byte
		err error
	)
	if filename == "" || filename == "-" {
		src, err = ioutil.ReadAll(os.Stdin)
	} else {
		src, err = ioutil.ReadFile(filename)
	}
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err = json.Unmarshal(src, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// stringKeys rewrites YAML-style maps into the canonical JSON form.
func stringKeys(x interface{}) interface{} {
	switch v := x.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[fmt.Sprintf("%v", k)] = stringKeys(val)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[k] = stringKeys(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(v))
		for i, val := range v {
			s[i] = stringKeys(val)
		}
		return s
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return v
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
