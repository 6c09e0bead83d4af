package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/gosuri/uiprogress"
	"github.com/maseology/mmio"

	"github.com/cbsteh/PySawit/cfg"
	"github.com/cbsteh/PySawit/sim"
	"github.com/cbsteh/PySawit/wgen"
)

func main() {
	cfgFp := flag.String("c", "pysawit.json", "run configuration file")
	days := flag.Int("d", 3650, "number of daily steps")
	hourly := flag.Bool("hourly", false, "run one day of hourly steps instead")
	outFp := flag.String("o", "pysawit.out.csv", "daily results file")
	flag.Parse()

	fmt.Println("")
	tt := mmio.NewTimer()
	defer tt.Lap("\nrun complete")

	c, wp, err := cfg.Load(*cfgFp)
	if err != nil {
		log.Fatalf("pysawit: %v", err)
	}
	rng := sim.NewRng(c.Seed)
	s := sim.New(c, rng, wgen.New(wp, rng))
	tt.Print("model load complete\n")

	if *hourly {
		runHourly(s)
		return
	}
	runDaily(s, *days, *outFp)
}

func runDaily(s *sim.Sim, days int, outFp string) {
	tw, err := mmio.NewTXTwriter(outFp)
	if err != nil {
		log.Fatalf("pysawit: %v", err)
	}
	defer tw.Close()
	tw.WriteLine("day,doy,age,assim,etcrop,etsoil,yield,lai,treehgt,rootvwc,stress")

	uiprogress.Start()
	bar := uiprogress.AddBar(days).AppendCompleted().PrependElapsed()
	bar.PrependFunc(func(b *uiprogress.Bar) string {
		return fmt.Sprintf("doy %3d", s.Met.Doy)
	})
	for i := 0; i < days; i++ {
		if err := s.NextDay(); err != nil {
			uiprogress.Stop()
			log.Fatalf("pysawit: day %d: %v", i, err)
		}
		tw.WriteLine(fmt.Sprintf("%d,%d,%d,%.4f,%.4f,%.4f,%.4f,%.4f,%.3f,%.4f,%.4f",
			i, s.Met.Doy, s.Crop.TreeAge,
			s.Photo.DayAssim, s.Egy.DayET.Crop, s.Egy.DayET.Soil,
			s.Crop.BunchYield, s.Crop.LAI, s.Crop.TreeHgt,
			s.Soil.RootZone.Vwc, s.Soil.Stresses.Crop))
		bar.Incr()
	}
	uiprogress.Stop()
	fmt.Printf(" %s daily steps written to %s\n", mmio.Thousands(int64(days)), outFp)
}

func runHourly(s *sim.Sim) {
	fmt.Println("hour,airtemp,netrad,canopytemp,assim,ettotal,htotal")
	for i := 0; i < 24; i++ {
		if err := s.NextHour(); err != nil {
			log.Fatalf("pysawit: hour %d: %v", i, err)
		}
		fmt.Printf("%4.0f,%.2f,%.1f,%.2f,%.3f,%.1f,%.1f\n",
			s.Met.SolarHour, s.Met.AirTemp, s.Met.NetRad,
			s.Egy.CanopyTemp, s.Photo.CanopyAssim,
			s.Egy.ET.Total, s.Egy.H.Total)
	}
}
