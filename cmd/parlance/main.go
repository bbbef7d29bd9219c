package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dasmlab/parlance/pkg/api"
	"github.com/dasmlab/parlance/pkg/translate"
	"github.com/sirupsen/logrus"
)

var (
	serverAddr = flag.String("addr", translate.DefaultProxyURL, "Parlance API base URL")
	sourceLang = flag.String("source", "", "Source language code (empty to auto-detect)")
	targetLang = flag.String("target", "fr", "Target language code (e.g., en, fr)")
	textFile   = flag.String("file", "", "Path to text file to translate")
	text       = flag.String("text", "", "Text to translate (if file not provided)")
	detectOnly = flag.Bool("detect", false, "Only detect the language of the text")
	timeout    = flag.Duration("timeout", 30*time.Second, "Request timeout")
	verbose    = flag.Bool("v", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	var input string
	if *textFile != "" {
		data, err := os.ReadFile(*textFile)
		if err != nil {
			logger.WithError(err).Fatalf("Failed to read file: %s", *textFile)
		}
		input = string(data)
	} else if *text != "" {
		input = *text
	} else {
		logger.Fatal("Either -file or -text must be provided")
	}

	if strings.TrimSpace(input) == "" {
		logger.Fatal("Text to translate is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := translate.NewProxyClient(*serverAddr, nil, logger)

	logger.WithFields(logrus.Fields{
		"server":      client.BaseURL(),
		"source_lang": *sourceLang,
		"target_lang": *targetLang,
		"text_length": utf8.RuneCountInString(input),
	}).Info("Connecting to Parlance server...")

	if err := client.CheckHealth(ctx); err != nil {
		logger.WithError(err).Fatal("Server is not healthy")
	}

	separator := strings.Repeat("=", 80)
	dashLine := strings.Repeat("-", 80)

	if *detectOnly {
		lang, err := client.DetectLanguage(ctx, input)
		if err != nil {
			logger.WithError(err).Fatal("Detection failed")
		}
		fmt.Println()
		fmt.Println(separator)
		fmt.Println("DETECTION RESULT")
		fmt.Println(separator)
		fmt.Printf("\nDetected Language: %s\n\n", lang)
		fmt.Println(separator)
		return
	}

	logger.Info("Translating text...")
	startTime := time.Now()

	resp, err := client.TranslateDetailed(ctx, api.TranslateRequest{
		Text:   input,
		Target: *targetLang,
		Source: *sourceLang,
	})
	if err != nil {
		logger.WithError(err).Fatal("Translation failed")
	}

	duration := time.Since(startTime)

	source := "unknown"
	if resp.SourceLanguage != nil {
		source = *resp.SourceLanguage
	}

	fmt.Println()
	fmt.Println(separator)
	fmt.Println("TRANSLATION RESULTS")
	fmt.Println(separator)
	fmt.Printf("\nProvider: %s\n", resp.Provider)
	fmt.Printf("Source Language: %s\n", source)
	fmt.Printf("Target Language: %s\n", resp.TargetLanguage)
	fmt.Printf("Translation Time: %.2f seconds\n", duration.Seconds())
	fmt.Println()
	fmt.Println(dashLine)
	fmt.Println("ORIGINAL TEXT:")
	fmt.Println(dashLine)
	fmt.Println(resp.OriginalText)
	fmt.Println()
	fmt.Println(dashLine)
	fmt.Println("TRANSLATED TEXT:")
	fmt.Println(dashLine)
	fmt.Println(resp.TranslatedText)
	fmt.Println()
	fmt.Println(separator)

	logger.WithFields(logrus.Fields{
		"duration_seconds": duration.Seconds(),
	}).Info("Translation completed successfully")
}
