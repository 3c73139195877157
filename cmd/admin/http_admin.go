package main

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func httpGet(baseURL, path string) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	cl := &http.Client{Timeout: 30 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Print(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func httpPost(baseURL, path string) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	req, _ := http.NewRequest(http.MethodPost, u, nil)
	cl := &http.Client{Timeout: 60 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Print(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func uploadStudy(baseURL, studyID, patientID, maskPath, ctPath string) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("study_id", studyID)
	_ = mw.WriteField("patient_id", patientID)
	if err := attachFile(mw, "mask", maskPath); err != nil {
		fmt.Fprintln(os.Stderr, "mask:", err)
		os.Exit(1)
	}
	if strings.TrimSpace(ctPath) != "" {
		if err := attachFile(mw, "ct", ctPath); err != nil {
			fmt.Fprintln(os.Stderr, "ct:", err)
			os.Exit(1)
		}
	}
	if err := mw.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "multipart:", err)
		os.Exit(1)
	}

	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/admin/v1/studies"
	req, _ := http.NewRequest(http.MethodPost, u, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	cl := &http.Client{Timeout: 5 * time.Minute}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Print(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

func attachFile(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
