package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/optifuse/optifuse"
	"github.com/optifuse/optifuse/unirange"
	"github.com/optifuse/optifuse/utils"
)

const HelpBanner = `
┌─┐┌─┐┌┬┐┬┌─┐┬ ┬┌─┐┌─┐
│ │├─┘ │ │├┤ │ │└─┐├┤
└─┘┴   ┴ ┴└  └─┘└─┘└─┘

Frontend asset optimization pipeline.
    Version: %s

`

// maxWorkers sets the maximum number of concurrently running workers.
const maxWorkers = 20

// result holds the relevant information about one processed asset.
type result struct {
	path    string
	created []string
	err     error
}

// spinner used to instantiate and call the progress indicator.
var spinner *utils.Spinner

// Version indicates the current build version.
var Version string

var (
	// Flags
	source      = flag.String("in", "", "Source file, directory or URL")
	destination = flag.String("out", "", "Destination directory")
	lossless    = flag.Bool("lossless", false, "Use lossless WebP encoding")
	quality     = flag.Int("quality", optifuse.DefaultQuality, "Starting WebP quality")
	ratio       = flag.Float64("ratio", optifuse.DefaultTargetRatio, "WebP size budget relative to the fallback")
	imgmax      = flag.Int("imgmax", 0, "Downscale images whose longest side exceeds this value")
	altText     = flag.String("alt", "", "Alt text used in the generated <picture> snippet")
	svgPretty   = flag.Bool("svgpretty", false, "Keep line breaks in the minified SVG output")
	family      = flag.String("family", "", "Font family name used in the @font-face rules")
	weight      = flag.String("weight", "normal", "Font weight used in the @font-face rules")
	style       = flag.String("style", "normal", "Font style used in the @font-face rules")
	split       = flag.String("split", "auto", "Font splitting strategy: auto, none or by-256")
	maxChunk    = flag.Int("chunk", unirange.MaxChunkSize, "Maximum code points per font subset")
	minMerge    = flag.Int("merge", unirange.MinMergeSize, "Preferred minimum code points per merged subset")
	fontJobs    = flag.Int("fontjobs", runtime.NumCPU(), "Number of font subsets to encode concurrently")
	workers     = flag.Int("conc", runtime.NumCPU(), "Number of files to process concurrently")

	// File related variables
	fs  os.FileInfo
	err error
)

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, HelpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *source == "" || *destination == "" {
		flag.Usage()
		log.Fatal(fmt.Sprintf("%s%s",
			utils.DecorateText("\nPlease provide a source and a destination directory!", utils.ErrorMessage),
			utils.DefaultColor,
		))
	}

	strategy, err := unirange.ParseStrategy(*split)
	if err != nil {
		log.Fatal(utils.DecorateText(fmt.Sprintf("%v\n", err), utils.ErrorMessage))
	}

	proc := optifuse.NewProcessor()
	proc.Lossless = *lossless
	proc.Quality = *quality
	proc.TargetRatio = *ratio
	proc.MaxSide = *imgmax
	proc.AltText = *altText
	proc.SvgPretty = *svgPretty
	proc.FontFamily = *family
	proc.FontWeight = *weight
	proc.FontStyle = *style
	proc.Strategy = strategy
	proc.MaxChunk = *maxChunk
	proc.MinMerge = *minMerge
	proc.FontJobs = *fontJobs

	spinnerText := fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ OPTIFUSE", utils.StatusMessage),
		utils.DecorateText("is optimizing the assets...", utils.DefaultMessage))
	spinner = utils.NewSpinner(spinnerText, time.Millisecond*200, true)

	// The progress indicator only makes sense on an interactive terminal.
	animate := term.IsTerminal(int(os.Stderr.Fd()))

	// Capture CTRL-C signal and restore the cursor visibility back.
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		spinner.RestoreCursor()
		os.Exit(1)
	}()

	// Check if source path is a local file or URL.
	if utils.IsValidUrl(*source) {
		src, err := utils.DownloadAsset(*source)
		if err != nil {
			log.Fatalf(
				utils.DecorateText("Failed to download the source asset: %v", utils.ErrorMessage),
				utils.DecorateText(err.Error(), utils.DefaultMessage),
			)
		}
		defer src.Close()
		defer os.Remove(src.Name())

		// Keep the original extension so the asset is routed to the right pipeline.
		named := src.Name() + filepath.Ext(*source)
		if err := os.Rename(src.Name(), named); err != nil {
			log.Fatalf(utils.DecorateText("Unable to rename the temporary file: %v\n", utils.ErrorMessage), err)
		}
		defer os.Remove(named)
		*source = named
	}

	fs, err = os.Stat(*source)
	if err != nil {
		log.Fatalf(
			utils.DecorateText("Failed to load the source asset: %v", utils.ErrorMessage),
			utils.DecorateText(err.Error(), utils.DefaultMessage),
		)
	}

	now := time.Now()
	failed := 0

	switch mode := fs.Mode(); {
	case mode.IsDir():
		// Limit the concurrently running workers to maxWorkers.
		if *workers <= 0 || *workers > maxWorkers {
			*workers = runtime.NumCPU()
		}

		// Process recursively the asset files from the specified directory concurrently.
		ch := make(chan result)
		done := make(chan interface{})
		defer close(done)

		paths, errc := walkDir(done, *source, optifuse.SupportedExtensions())

		var wg sync.WaitGroup
		wg.Add(*workers)
		for i := 0; i < *workers; i++ {
			go func() {
				defer wg.Done()
				consumer(done, paths, *destination, proc, ch)
			}()
		}

		// Close the channel after the values are consumed.
		go func() {
			defer close(ch)
			wg.Wait()
		}()

		if animate {
			spinner.Start()
		}

		// Consume the channel values. A failed asset does not stop the batch.
		for res := range ch {
			if res.err != nil {
				failed++
			}
			printStatus(res)
		}
		if animate {
			spinner.Stop()
		}

		if err := <-errc; err != nil {
			fmt.Fprint(os.Stderr, utils.DecorateText(err.Error(), utils.ErrorMessage))
		}

	case mode.IsRegular():
		if animate {
			spinner.Start()
		}
		created, err := proc.ProcessFile(*source, *destination)
		if animate {
			spinner.Stop()
		}

		if err != nil {
			failed++
		}
		printStatus(result{path: *source, created: created, err: err})
	}

	fmt.Fprintf(os.Stderr, "\nExecution time: %s\n",
		utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))

	if failed > 0 {
		os.Exit(1)
	}
}

// walkDir starts a goroutine to walk the specified directory tree in recursive manner
// and send the path of each supported regular file on the string channel.
// It sends the result of the walk on the error channel.
// It terminates in case done channel is closed.
func walkDir(
	done <-chan interface{},
	src string,
	srcExts []string,
) (<-chan string, <-chan error) {
	pathChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		// Close the paths channel after Walk returns.
		defer close(pathChan)

		errChan <- filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
			isFileSupported := false
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}

			// Get the file base name.
			fx := strings.ToLower(filepath.Ext(info.Name()))
			for _, ext := range srcExts {
				if ext == fx {
					isFileSupported = true
					break
				}
			}

			if isFileSupported {
				select {
				case <-done:
					return errors.New("directory walk cancelled")
				case pathChan <- path:
				}
			}
			return nil
		})
	}()
	return pathChan, errChan
}

// consumer reads the path names from the paths channel and runs the asset
// pipeline against each source file, then sends the results on a new channel.
func consumer(
	done <-chan interface{},
	paths <-chan string,
	dest string,
	proc *optifuse.Processor,
	res chan<- result,
) {
	for src := range paths {
		created, err := proc.ProcessFile(src, dest)

		select {
		case <-done:
			return
		case res <- result{
			path:    src,
			created: created,
			err:     err,
		}:
		}
	}
}

// printStatus displays the relevant information about one processed asset.
func printStatus(res result) {
	if res.err != nil {
		fmt.Fprintf(os.Stderr,
			utils.DecorateText("\nError optimizing %s", utils.ErrorMessage)+
				utils.DecorateText(fmt.Sprintf("\n\tReason: %v\n", res.err), utils.DefaultMessage),
			filepath.Base(res.path),
		)
		return
	}

	fmt.Fprintf(os.Stderr, "\n%s %s %s\n",
		utils.DecorateText(filepath.Base(res.path), utils.SuccessMessage),
		utils.DecorateText("→", utils.DefaultMessage),
		utils.DecorateText(fmt.Sprintf("%d files", len(res.created)), utils.StatusMessage),
	)
}
