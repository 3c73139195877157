// admin is the operator CLI for a running editor server. Most subcommands
// talk to the loopback-only /admin/v1 endpoints; `admin db` reads the sqlite
// edit index directly.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "upload":
			uploadCmd(os.Args[2:])
			return
		case "report":
			reportCmd(os.Args[2:])
			return
		case "grades":
			gradesCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "restore":
			restoreCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "list":
			listCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	httpGet(*baseURL, "/admin/v1/studies")
}

func uploadCmd(args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	studyID := fs.String("study", "", "study id")
	patientID := fs.String("patient", "", "patient id")
	maskPath := fs.String("mask", "", "label mask volume (.nii or .nii.gz)")
	ctPath := fs.String("ct", "", "CT volume (optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*studyID) == "" || strings.TrimSpace(*patientID) == "" {
		fmt.Fprintln(os.Stderr, "missing -study or -patient")
		os.Exit(2)
	}
	if strings.TrimSpace(*maskPath) == "" {
		fmt.Fprintln(os.Stderr, "missing -mask")
		os.Exit(2)
	}
	uploadStudy(*baseURL, *studyID, *patientID, *maskPath, *ctPath)
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	studyID := fs.String("study", "", "study id")
	_ = fs.Parse(args)

	if strings.TrimSpace(*studyID) == "" {
		fmt.Fprintln(os.Stderr, "missing -study")
		os.Exit(2)
	}
	httpGet(*baseURL, "/admin/v1/studies/"+*studyID+"/report.csv")
}

func gradesCmd(args []string) {
	fs := flag.NewFlagSet("grades", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	studyID := fs.String("study", "", "study id")
	_ = fs.Parse(args)

	if strings.TrimSpace(*studyID) == "" {
		fmt.Fprintln(os.Stderr, "missing -study")
		os.Exit(2)
	}
	httpGet(*baseURL, "/admin/v1/studies/"+*studyID+"/grades")
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	studyID := fs.String("study", "", "study id")
	_ = fs.Parse(args)

	if strings.TrimSpace(*studyID) == "" {
		fmt.Fprintln(os.Stderr, "missing -study")
		os.Exit(2)
	}
	httpPost(*baseURL, "/admin/v1/studies/"+*studyID+"/snapshot")
}

func restoreCmd(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	studyID := fs.String("study", "", "study id")
	_ = fs.Parse(args)

	if strings.TrimSpace(*studyID) == "" {
		fmt.Fprintln(os.Stderr, "missing -study")
		os.Exit(2)
	}
	httpPost(*baseURL, "/admin/v1/studies/"+*studyID+"/restore")
}
