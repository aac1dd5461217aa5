package main

import (
	"os"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/mind-engage/mindengage-quiz/internal/config"
)

var (
	validateCmd  = kingpin.Command("validate", "Check a draft quiz file (YAML or JSON) for authoring errors")
	validateFile = validateCmd.Arg("file", "Quiz file").Required().ExistingFile()

	gradeCmd     = kingpin.Command("grade", "Grade an answers file against a quiz file")
	gradeQuiz    = gradeCmd.Flag("quiz", "Quiz file (YAML or JSON)").Required().ExistingFile()
	gradeAnswers = gradeCmd.Flag("answers", "JSON object of question id to answer value").Required().ExistingFile()

	statsCmd    = kingpin.Command("stats", "Print statistics for a quiz from the database")
	statsQuiz   = statsCmd.Arg("quiz-id", "Quiz id").Required().String()
	statsDriver = statsCmd.Flag("db-driver", "sqlite or postgres").Envar("DB_DRIVER").Default("sqlite").Enum("sqlite", "postgres")
	statsDSN    = statsCmd.Flag("db-dsn", "Database DSN").Envar("DB_DSN").String()
)

func main() {
	cfg := config.Load()
	log := cfg.Logger()

	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Version("0.1")
	kingpin.CommandLine.Help = "MindEngage quiz utilities"

	var err error
	cmd := kingpin.Parse()
	switch cmd {
	case "validate":
		var ok bool
		ok, err = runValidate(os.Stdout, *validateFile)
		if err == nil && !ok {
			os.Exit(1)
		}
	case "grade":
		err = runGrade(os.Stdout, *gradeQuiz, *gradeAnswers)
	case "stats":
		err = runStats(os.Stdout, *statsDriver, *statsDSN, *statsQuiz)
	default:
		log.Fatal("Unknown command")
	}
	if err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}
}
