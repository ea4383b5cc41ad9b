package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"

	"gsi/geometry"
	"gsi/importing"
	"gsi/index"
	"gsi/storage"
	"gsi/web"
)

const VERSION = "v0.1.0"

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Version VersionFlag `help:"Print version information and quit" name:"version" short:"v"`
	Build   struct {
		Input      string `help:"The input file. Either .osm or .osm.pbf." placeholder:"<input-file>" arg:"" type:"existingfile"`
		Resolution int    `help:"The maximum H3 resolution of the index." default:"9"`
	} `cmd:"" help:"Builds an H3 index from the given OSM file and uploads it to the index folder."`
	Query struct {
		Wkt        string `help:"The query geometry as WKT." placeholder:"<wkt>" arg:""`
		Op         string `help:"The spatial predicate to evaluate." default:"intersects"`
		Resolution int    `help:"The maximum H3 resolution the index was built with." default:"9"`
	} `cmd:"" help:"Evaluates a spatial predicate between every indexed row and the given geometry."`
	Serve struct {
		Port       string `help:"The port to listen on." default:"8080"`
		Resolution int    `help:"The maximum H3 resolution the index was built with." default:"9"`
	} `cmd:"" help:"Serves the query API for a previously built index."`
}

var indexBaseFolder = "h3-index"

type VersionFlag string

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	ctx := kong.Parse(
		&cli,
		kong.Name("H3 geo index"),
		kong.Description("A tool to build and query H3 indexes over geospatial data."),
		kong.Vars{
			"version": VERSION,
		},
	)

	if strings.ToLower(cli.Logging) == "debug" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	} else if strings.ToLower(cli.Logging) == "trace" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	} else if strings.ToLower(cli.Logging) == "info" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
	} else {
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
		sigolo.Fatalf("Unknown logging level '%s'", cli.Logging)
	}

	switch ctx.Command() {
	case "build <input>":
		fileManager := storage.NewLocalFileManager(indexBaseFolder)
		idx, err := importing.ImportAndBuild(context.Background(), cli.Build.Input, cli.Build.Resolution, fileManager)
		sigolo.FatalCheck(err)

		remotePaths, err := idx.Upload(context.Background())
		sigolo.FatalCheck(err)

		for path, size := range remotePaths {
			sigolo.Infof("Uploaded %s (%d bytes)", path, size)
		}
	case "query <wkt>":
		op, err := index.GeoOpFromString(cli.Query.Op)
		sigolo.FatalCheck(err)

		queryGeometry, err := geometry.FromWKT(cli.Query.Wkt)
		sigolo.FatalCheck(err)

		idx := loadIndex(cli.Query.Resolution)
		bitmap, err := idx.ExecGeoRelations([][]byte{queryGeometry.WKB()}, op)
		sigolo.FatalCheck(err)

		sigolo.Infof("Predicate %s matched %d of %d rows", op, bitmap.TrueCount(), idx.Count())
		bitmap.ForEachSet(func(offset uint32) bool {
			raw, err := idx.ReverseLookup(offset)
			sigolo.FatalCheck(err)
			g, err := geometry.FromWKB(raw)
			sigolo.FatalCheck(err)
			fmt.Printf("%d\t%s\n", offset, g.WKT())
			return true
		})
	case "serve":
		idx := loadIndex(cli.Serve.Resolution)
		web.StartServer(cli.Serve.Port, idx)
	default:
		sigolo.Errorf("Unknown command '%s'", ctx.Command())
	}
}

func loadIndex(resolution int) *index.GeoH3Index {
	fileManager := storage.NewLocalFileManager(indexBaseFolder)
	idx, err := index.NewGeoH3Index(fileManager, resolution)
	sigolo.FatalCheck(err)

	indexFiles, err := fileManager.ListFiles()
	sigolo.FatalCheck(err)

	err = idx.LoadFromConfig(context.Background(), index.Config{index.KeyIndexFiles: indexFiles})
	sigolo.FatalCheck(err)
	return idx
}
