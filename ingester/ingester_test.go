package ingester_test

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/airbusgeo/eoarchive-ingester/common"
	"github.com/airbusgeo/eoarchive-ingester/ingester"
	"github.com/airbusgeo/eoarchive-ingester/resource"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Ingester", func() {
	var engine *MokeEngine
	var svc ingester.Services
	var cfg ingester.Config
	var status *ingester.Status
	ctx := context.Background()

	newConfig := func() ingester.Config {
		dates, err := common.ParseDateRange("2022-07-01", "2022-07-31", common.S2L2AMAJA.Params().EarliestDate)
		Expect(err).NotTo(HaveOccurred())
		return ingester.Config{
			Output:     "s2_stack",
			Collection: common.S2L2AMAJA,
			Archive:    common.Eolab,
			Mountpoint: mountpoint,
			Bands:      []common.Band{common.S2B4, common.S2B8, common.S2CLM},
			Dates:      dates,
			Workers:    resource.AllButOne,
			MemoryMB:   300,
		}
	}

	BeforeEach(func() {
		engine = NewMokeEngine()
		session := &MokeSession{wkt: "POLYGON((8 51, 9 51, 9 52, 8 52, 8 51))"}
		svc = ingester.Services{
			Session:    session,
			Engine:     engine,
			Labeler:    engine,
			TimeSeries: engine,
			Cleaner:    engine,
			Grid:       &MokeGrid{tiles: []string{"32UNB"}},
		}
		cfg = newConfig()
		status = ingester.NewStatus()
	})

	Describe("ingesting a July date range on tile 32UNB", func() {
		It("registers every requested band of every matching acquisition", func() {
			Expect(ingester.Run(ctx, cfg, svc, status)).To(Succeed())

			// 2 acquisitions x 3 bands
			Expect(engine.strds).To(Equal([]string{"s2_stack"}))
			Expect(engine.registered["s2_stack"]).To(HaveLen(6))
			for _, line := range engine.registered["s2_stack"] {
				Expect(line).To(MatchRegexp(`^SENTINEL2B_202207(05|20)_103423_177_L2A_T32UNB_C_V3_0_(FRE_B[48]|CLM_R1)\|2022-07-(05|20) 10:34:23$`))
			}
		})

		It("labels each raster with its band", func() {
			Expect(ingester.Run(ctx, cfg, svc, status)).To(Succeed())
			b4, clm := 0, 0
			for _, label := range engine.labels {
				switch label {
				case "S2_B4":
					b4++
				case "S2_CLM":
					clm++
				}
			}
			Expect(b4).To(Equal(2))
			// one mask per acquisition
			Expect(clm).To(Equal(2))
		})

		It("keeps an empty cloud mask but discards an empty reflectance raster", func() {
			engine.emptyRasters["SENTINEL2B_20220705_103423_177_L2A_T32UNB_C_V3_0_FRE_B4"] = true
			engine.emptyRasters["SENTINEL2B_20220705_103423_177_L2A_T32UNB_C_V3_0_CLM_R1"] = true
			Expect(ingester.Run(ctx, cfg, svc, status)).To(Succeed())

			Expect(engine.registered["s2_stack"]).To(HaveLen(5))
			Expect(strings.Join(engine.registered["s2_stack"], "\n")).To(
				ContainSubstring("SENTINEL2B_20220705_103423_177_L2A_T32UNB_C_V3_0_CLM_R1"))
			// the discarded raster is removed on teardown
			Expect(engine.removed).To(ContainElement("SENTINEL2B_20220705_103423_177_L2A_T32UNB_C_V3_0_FRE_B4"))
			Expect(engine.rasters).NotTo(HaveKey("SENTINEL2B_20220705_103423_177_L2A_T32UNB_C_V3_0_FRE_B4"))
		})

		It("reports its progress", func() {
			Expect(ingester.Run(ctx, cfg, svc, status)).To(Succeed())
			snapshot, err := status.Snapshot()
			Expect(err).NotTo(HaveOccurred())
			progress := struct {
				Phase  string `json:"phase"`
				Scenes int    `json:"scenes"`
				Tasks  int    `json:"tasks"`
				Done   int    `json:"done"`
			}{}
			Expect(json.Unmarshal(snapshot, &progress)).To(Succeed())
			Expect(progress.Phase).To(Equal("DONE"))
			Expect(progress.Scenes).To(Equal(2))
			Expect(progress.Tasks).To(Equal(6))
			Expect(progress.Done).To(Equal(6))
		})
	})

	Describe("ingesting a region outside the archive", func() {
		It("fails without creating the output container", func() {
			svc.Grid = &MokeGrid{tiles: []string{"99ZZZ"}}
			err := ingester.Run(ctx, cfg, svc, status)
			Expect(err).To(MatchError("No scenes matching the spatial and temporal filter found. Exiting..."))
			Expect(engine.strds).To(BeEmpty())
		})

		It("fails on a date range before the first acquisition", func() {
			dates, err := common.ParseDateRange("2021-01-01", "2021-02-01", common.S2L2AMAJA.Params().EarliestDate)
			Expect(err).NotTo(HaveOccurred())
			cfg.Dates = dates
			Expect(ingester.Run(ctx, cfg, svc, status)).To(MatchError(ingester.ErrNoScenes))
		})
	})
})
