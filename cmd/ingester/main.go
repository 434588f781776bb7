package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/airbusgeo/eoarchive-ingester/common"
	"github.com/airbusgeo/eoarchive-ingester/ingester"
	"github.com/airbusgeo/eoarchive-ingester/interface/gis/grass"
	"github.com/airbusgeo/eoarchive-ingester/interface/grid/wfs"
	"github.com/airbusgeo/eoarchive-ingester/resource"
	"github.com/airbusgeo/eoarchive-ingester/service/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type config struct {
	Output     string
	Collection common.Collection
	Archive    common.Archive
	Mountpoint string
	Bands      []common.Band
	Dates      common.DateRange
	MemoryMB   int
	NProcs     int

	WFSURL     string
	WFSLayer   string
	StatusAddr string
}

func newAppConfig() (*config, error) {
	config := config{}
	var collection, archive, bands, start, end string

	flag.StringVar(&config.Output, "output", "", "name of the output raster time series")
	flag.StringVar(&collection, "collection", "S2-L2A-MAJA", "collection to ingest")
	flag.StringVar(&archive, "archive", "eolab", "archive hosting the collection")
	flag.StringVar(&config.Mountpoint, "mountpoint", "/codede", "mountpoint of the archive filesystem")
	flag.StringVar(&bands, "bands", "S2_B4,S2_B8,S2_CLM", "comma-separated bands to import")
	flag.StringVar(&start, "start", "", "start date of the acquisitions (inclusive), e.g. 2022-07-01")
	flag.StringVar(&end, "end", common.TodaySentinel, "end date of the acquisitions (exclusive)")
	flag.IntVar(&config.MemoryMB, "memory", 300, "total memory budget in MB, split across workers")
	flag.IntVar(&config.NProcs, "nprocs", resource.AllButOne, "number of import workers (-2: all cores but one)")

	flag.StringVar(&config.WFSURL, "wfs-url", wfs.DefaultURL, "WFS endpoint of the tiling-grid service")
	flag.StringVar(&config.WFSLayer, "wfs-layer", wfs.DefaultLayer, "WFS layer of the tiling grid")
	flag.StringVar(&config.StatusAddr, "status-addr", "", "optional address of the progress endpoint, e.g. :9000")
	flag.Parse()

	if config.Output == "" {
		return nil, fmt.Errorf("missing output config flag")
	}
	if config.Collection = common.GetCollectionFromString(collection); config.Collection == common.UnknownCollection {
		return nil, fmt.Errorf("unknown collection %s", collection)
	}
	if config.Archive = common.GetArchiveFromString(archive); config.Archive == common.UnknownArchive {
		return nil, fmt.Errorf("unknown archive %s", archive)
	}
	for _, band := range strings.Split(bands, ",") {
		band = strings.TrimSpace(band)
		if band == "" {
			continue
		}
		if _, ok := config.Collection.Params().BandSuffixes[common.Band(band)]; !ok {
			return nil, fmt.Errorf("band %s is not part of collection %s", band, collection)
		}
		config.Bands = append(config.Bands, common.Band(band))
	}
	if len(config.Bands) == 0 {
		return nil, fmt.Errorf("missing bands config flag")
	}
	if start == "" {
		return nil, fmt.Errorf("missing start config flag")
	}
	var err error
	if config.Dates, err = common.ParseDateRange(start, end, config.Collection.Params().EarliestDate); err != nil {
		return nil, err
	}
	if config.MemoryMB < 1 {
		return nil, fmt.Errorf("wrong memory config flag")
	}
	if config.NProcs < 1 && config.NProcs != resource.AllButOne {
		return nil, fmt.Errorf("wrong nprocs config flag")
	}
	return &config, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx); err != nil {
		if errors.Is(err, ingester.ErrNoScenes) {
			log.Fatal(err.Error())
		}
		log.Fatal("error", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	config, err := newAppConfig()
	if err != nil {
		return err
	}

	session, err := grass.New(ctx)
	if err != nil {
		return fmt.Errorf("grass.New: %w", err)
	}

	status := ingester.NewStatus()
	if config.StatusAddr != "" {
		router := mux.NewRouter()
		router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
			snapshot, err := status.Snapshot()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(snapshot)
		}).Methods("GET")
		headersOk := handlers.AllowedHeaders([]string{"*"})
		originsOk := handlers.AllowedOrigins([]string{"*"})
		methodsOk := handlers.AllowedMethods([]string{"GET", "OPTIONS"})
		s := http.Server{
			Addr:    config.StatusAddr,
			Handler: handlers.CORS(originsOk, headersOk, methodsOk)(router),
		}
		go func() {
			if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Logger(ctx).Error(err.Error())
			}
		}()
		defer s.Close()
	}

	return ingester.Run(ctx, ingester.Config{
		Output:     config.Output,
		Collection: config.Collection,
		Archive:    config.Archive,
		Mountpoint: config.Mountpoint,
		Bands:      config.Bands,
		Dates:      config.Dates,
		Workers:    config.NProcs,
		MemoryMB:   config.MemoryMB,
	}, ingester.Services{
		Session:    session,
		Engine:     session,
		Labeler:    session,
		TimeSeries: session,
		Cleaner:    session,
		Grid:       &wfs.Client{URL: config.WFSURL, Layer: config.WFSLayer},
	}, status)
}
