package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"cyberml/config"
	"cyberml/detector"
	"cyberml/logging"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	pipeline := flag.String("pipeline", detector.PipelineSpam, "pipeline to evaluate: spam or malware")
	dataPath := flag.String("data", "", "labelled JSONL file")
	flag.Parse()

	if *dataPath == "" {
		log.Fatal("data is required")
	}
	if *pipeline != detector.PipelineSpam && *pipeline != detector.PipelineMalware {
		log.Fatalf("unknown pipeline %q", *pipeline)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.Log.File = ""
	cfg.Log.Format = "console"
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	artifacts, err := detector.LoadArtifacts(ctx, detector.ArtifactPaths{
		MalwareModel:    cfg.Models.Path(cfg.Models.MalwareModel),
		MalwareFeatures: cfg.Models.Path(cfg.Models.MalwareFeatures),
		SpamModel:       cfg.Models.Path(cfg.Models.SpamModel),
		SpamVectorizer:  cfg.Models.Path(cfg.Models.SpamVectorizer),
		SpamKeywords:    cfg.Models.Path(cfg.Models.SpamKeywords),
	}, logger)
	if err != nil {
		logger.Fatal("failed to load models", zap.Error(err))
	}
	svc, err := detector.NewService(artifacts, detector.Options{})
	if err != nil {
		logger.Fatal("failed to build prediction service", zap.Error(err))
	}

	file, err := os.Open(*dataPath)
	if err != nil {
		logger.Fatal("failed to open data", zap.Error(err))
	}
	defer file.Close()

	report, err := evaluate(context.Background(), svc, *pipeline, file, logger)
	if err != nil {
		logger.Fatal("evaluation failed", zap.Error(err))
	}

	fmt.Printf("pipeline=%s samples=%d skipped=%d\n", *pipeline, report.Samples, report.Skipped)
	fmt.Printf("accuracy=%.4f precision=%.4f recall=%.4f\n", report.Accuracy, report.Precision, report.Recall)
}

type report struct {
	Samples   int
	Skipped   int
	Accuracy  float64
	Precision float64
	Recall    float64
}

type labelled struct {
	Label *int `json:"label"`
}

// evaluate scores every JSONL line against its label. Lines that fail
// validation or prediction are counted as skipped.
func evaluate(ctx context.Context, svc *detector.Service, pipeline string, r io.Reader, logger *zap.Logger) (report, error) {
	var rep report
	var correct, truePositive, predictedPositive, actualPositive int

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var l labelled
		if err := sonic.Unmarshal(line, &l); err != nil || l.Label == nil || (*l.Label != 0 && *l.Label != 1) {
			logger.Warn("skipping line without a 0/1 label", zap.Int("line", lineNo))
			rep.Skipped++
			continue
		}

		predicted, err := predict(ctx, svc, pipeline, line)
		if err != nil {
			logger.Warn("skipping line", zap.Int("line", lineNo), zap.Error(err))
			rep.Skipped++
			continue
		}

		rep.Samples++
		actual := *l.Label
		if predicted == actual {
			correct++
		}
		if predicted == 1 {
			predictedPositive++
		}
		if actual == 1 {
			actualPositive++
			if predicted == 1 {
				truePositive++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return rep, err
	}

	if rep.Samples > 0 {
		rep.Accuracy = float64(correct) / float64(rep.Samples)
	}
	if predictedPositive > 0 {
		rep.Precision = float64(truePositive) / float64(predictedPositive)
	}
	if actualPositive > 0 {
		rep.Recall = float64(truePositive) / float64(actualPositive)
	}
	return rep, nil
}

// predict returns 1 when the pipeline answers with its positive label.
func predict(ctx context.Context, svc *detector.Service, pipeline string, line []byte) (int, error) {
	var (
		p   detector.Prediction
		err error
	)
	switch pipeline {
	case detector.PipelineMalware:
		var record detector.MalwareRecord
		if err := detector.Decode(line, &record); err != nil {
			return 0, err
		}
		p, err = svc.PredictMalware(ctx, record)
		if err != nil {
			return 0, err
		}
		if p.Prediction == detector.MalwareLabels[1] {
			return 1, nil
		}
	default:
		var record detector.SpamRecord
		if err := detector.Decode(line, &record); err != nil {
			return 0, err
		}
		p, err = svc.PredictSpam(ctx, record)
		if err != nil {
			return 0, err
		}
		if p.Prediction == detector.SpamLabels[1] {
			return 1, nil
		}
	}
	return 0, nil
}
