package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	flag "github.com/spf13/pflag"

	"github.com/RowanDark/codecs/internal/cipher"
	"github.com/RowanDark/codecs/internal/config"
	"github.com/RowanDark/codecs/internal/logging"
	"github.com/RowanDark/codecs/internal/redact"
	"github.com/RowanDark/codecs/internal/rpc"
)

func recipeUsage() {
	fmt.Fprintln(stderr, "usage: codecctl recipe <command> [flags]")
	fmt.Fprintln(stderr)
	fmt.Fprintln(stderr, "commands:")
	fmt.Fprintln(stderr, "  save NAME --op OP [--param K=V] [--description D] [--tag T]")
	fmt.Fprintln(stderr, "  list")
	fmt.Fprintln(stderr, "  show NAME [--reveal]")
	fmt.Fprintln(stderr, "  search QUERY")
	fmt.Fprintln(stderr, "  delete NAME")
	fmt.Fprintln(stderr, "  run NAME [--reverse] [--in F] [--out F] [--server ADDR] [--chunk N]")
}

func runRecipe(args []string) int {
	if len(args) == 0 {
		recipeUsage()
		return 2
	}
	switch args[0] {
	case "save":
		return runRecipeSave(args[1:])
	case "list":
		return runRecipeList(args[1:])
	case "show":
		return runRecipeShow(args[1:])
	case "search":
		return runRecipeSearch(args[1:])
	case "delete":
		return runRecipeDelete(args[1:])
	case "run":
		return runRecipeRun(args[1:])
	case "help", "-h", "--help":
		recipeUsage()
		return 0
	default:
		fmt.Fprintf(stderr, "unknown recipe command: %s\n", args[0])
		recipeUsage()
		return 2
	}
}

// storeFlag registers --dir and returns a loader for the recipe store it
// names, falling back to the configured recipes directory.
func storeFlag(fs *flag.FlagSet) func() (*cipher.RecipeManager, error) {
	dir := fs.String("dir", "", "recipe directory (defaults to the configured recipes_dir)")
	return func() (*cipher.RecipeManager, error) {
		path := *dir
		if path == "" {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			path = cfg.RecipesDir
		}
		rm := cipher.NewRecipeManager(path)
		if err := rm.LoadRecipes(); err != nil {
			return nil, err
		}
		return rm, nil
	}
}

// singleArg parses fs and returns its one positional argument.
func singleArg(fs *flag.FlagSet, args []string, what string) (string, bool) {
	if err := fs.Parse(args); err != nil {
		return "", false
	}
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		fmt.Fprintf(stderr, "expected exactly one %s\n", what)
		return "", false
	}
	return fs.Arg(0), true
}

func runRecipeSave(args []string) int {
	fs := newFlagSet("recipe save")
	load := storeFlag(fs)
	var pf pipelineFlags
	pf.register(fs)
	description := fs.String("description", "", "what the recipe is for")
	tags := fs.StringArray("tag", nil, "tag, repeatable")
	irreversible := fs.Bool("irreversible", false, "mark the recipe as not reversible")
	name, ok := singleArg(fs, args, "recipe name")
	if !ok {
		return 2
	}

	pipeline, err := pf.build()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	pipeline.Reversible = !*irreversible

	rm, err := load()
	if err != nil {
		fmt.Fprintf(stderr, "load recipes: %v\n", err)
		return 1
	}
	recipe := &cipher.Recipe{
		Name:        name,
		Description: *description,
		Tags:        *tags,
		Pipeline:    pipeline,
	}
	if err := rm.SaveRecipe(recipe); err != nil {
		fmt.Fprintf(stderr, "save recipe: %v\n", err)
		return 1
	}
	auditRecipe(logging.EventRecipeSaved, recipe)
	fmt.Fprintf(stdout, "saved recipe %s (%s)\n", recipe.Name, recipe.ID)
	return 0
}

func runRecipeList(args []string) int {
	fs := newFlagSet("recipe list")
	load := storeFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rm, err := load()
	if err != nil {
		fmt.Fprintf(stderr, "load recipes: %v\n", err)
		return 1
	}
	return printRecipes(rm.ListRecipes())
}

func runRecipeSearch(args []string) int {
	fs := newFlagSet("recipe search")
	load := storeFlag(fs)
	query, ok := singleArg(fs, args, "search query")
	if !ok {
		return 2
	}
	rm, err := load()
	if err != nil {
		fmt.Fprintf(stderr, "load recipes: %v\n", err)
		return 1
	}
	return printRecipes(rm.SearchRecipes(query))
}

func printRecipes(recipes []*cipher.Recipe) int {
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTEPS\tTAGS\tDESCRIPTION")
	for _, r := range recipes {
		steps := make([]string, len(r.Pipeline.Operations))
		for i, op := range r.Pipeline.Operations {
			steps[i] = op.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, strings.Join(steps, ">"), strings.Join(r.Tags, ","), r.Description)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func runRecipeShow(args []string) int {
	fs := newFlagSet("recipe show")
	load := storeFlag(fs)
	reveal := fs.Bool("reveal", false, "print passwords and seeds instead of masking them")
	name, ok := singleArg(fs, args, "recipe name")
	if !ok {
		return 2
	}
	rm, err := load()
	if err != nil {
		fmt.Fprintf(stderr, "load recipes: %v\n", err)
		return 1
	}
	recipe, found := rm.GetRecipe(name)
	if !found {
		fmt.Fprintf(stderr, "%v: %s\n", cipher.ErrRecipeNotFound, name)
		return 1
	}

	shown := *recipe
	if !*reveal {
		ops := make([]cipher.OperationConfig, len(recipe.Pipeline.Operations))
		for i, op := range recipe.Pipeline.Operations {
			ops[i] = cipher.OperationConfig{Name: op.Name, Parameters: redact.Params(op.Parameters)}
		}
		shown.Pipeline.Operations = ops
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(shown); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func runRecipeDelete(args []string) int {
	fs := newFlagSet("recipe delete")
	load := storeFlag(fs)
	name, ok := singleArg(fs, args, "recipe name")
	if !ok {
		return 2
	}
	rm, err := load()
	if err != nil {
		fmt.Fprintf(stderr, "load recipes: %v\n", err)
		return 1
	}
	recipe, _ := rm.GetRecipe(name)
	if err := rm.DeleteRecipe(name); err != nil {
		fmt.Fprintf(stderr, "delete recipe: %v\n", err)
		return 1
	}
	auditRecipe(logging.EventRecipeDeleted, recipe)
	fmt.Fprintf(stdout, "deleted recipe %s\n", name)
	return 0
}

func runRecipeRun(args []string) int {
	fs := newFlagSet("recipe run")
	load := storeFlag(fs)
	var iof ioFlags
	iof.register(fs)
	name, ok := singleArg(fs, args, "recipe name")
	if !ok {
		return 2
	}
	if iof.chunk < 0 {
		fmt.Fprintln(stderr, "--chunk must not be negative")
		return 2
	}

	t := recipeTarget{name: name, reverse: iof.reverse}
	// Remote runs use the server's recipe store.
	if iof.server == "" {
		rm, err := load()
		if err != nil {
			fmt.Fprintf(stderr, "load recipes: %v\n", err)
			return 1
		}
		t.manager = rm
	}
	if err := execute(context.Background(), &iof, t); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

type recipeTarget struct {
	manager *cipher.RecipeManager
	name    string
	reverse bool
}

func (t recipeTarget) local(ctx context.Context, input []byte) ([]byte, error) {
	return t.manager.RunRecipe(ctx, t.name, input, t.reverse)
}

func (t recipeTarget) localSession() (*cipher.Session, error) {
	recipe, ok := t.manager.GetRecipe(t.name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", cipher.ErrRecipeNotFound, t.name)
	}
	pipeline := &recipe.Pipeline
	if t.reverse {
		reversed, err := pipeline.Reverse()
		if err != nil {
			return nil, err
		}
		pipeline = reversed
	}
	return pipeline.NewSession()
}

func (t recipeTarget) remote(ctx context.Context, c *rpc.Client, input []byte) ([]byte, error) {
	return c.ExecuteRecipe(ctx, t.name, t.reverse, input)
}

func (t recipeTarget) remoteStream(ctx context.Context, c *rpc.Client) (*rpc.Stream, error) {
	return c.OpenRecipeStream(ctx, t.name, t.reverse)
}

// auditRecipe appends a recipe change to the configured audit_log. Nothing
// is written when none is configured.
func auditRecipe(eventType logging.EventType, recipe *cipher.Recipe) {
	cfg, err := config.Load()
	if err != nil || cfg.AuditLog == "" || recipe == nil {
		return
	}
	audit, err := logging.NewAuditLogger("codecctl", logging.WithoutStdout(), logging.WithFile(cfg.AuditLog))
	if err != nil {
		fmt.Fprintf(stderr, "audit log: %v\n", err)
		return
	}
	defer audit.Close()

	steps := make([]any, len(recipe.Pipeline.Operations))
	for i, op := range recipe.Pipeline.Operations {
		step := map[string]any{"name": op.Name}
		if len(op.Parameters) > 0 {
			step["parameters"] = op.Parameters
		}
		steps[i] = step
	}
	event := logging.AuditEvent{
		EventType: eventType,
		Operation: "recipe:" + recipe.Name,
		Decision:  logging.DecisionAllow,
		Metadata:  map[string]any{"id": recipe.ID, "steps": steps},
	}
	if err := audit.Emit(event); err != nil {
		fmt.Fprintf(stderr, "audit log: %v\n", err)
	}
}
