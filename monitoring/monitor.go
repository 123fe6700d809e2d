// Package monitoring turns a loaded guest memory image into an HTTP
// server, so the translation engine can be poked at from a browser or
// from scripts while an analysis is running.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/Skyrano/icebox/nt"
	"github.com/Skyrano/icebox/vad"
)

// Monitor serves the state of a translation engine over HTTP and allows
// external tools to translate addresses and read pages of the inspected
// guest.
type Monitor struct {
	translator *nt.Translator
	session    *nt.Session
	regions    *vad.RegionTable
	processes  []*nt.Process
	portNumber int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterTranslator registers the translation engine to be served.
func (m *Monitor) RegisterTranslator(t *nt.Translator) {
	m.translator = t
}

// RegisterSession registers the guest session the translations run under.
func (m *Monitor) RegisterSession(s *nt.Session) {
	m.session = s
}

// RegisterRegionTable registers the address-space region records.
func (m *Monitor) RegisterRegionTable(t *vad.RegionTable) {
	m.regions = t
}

// RegisterProcess registers a guest process so requests can name it by
// PID.
func (m *Monitor) RegisterProcess(p *nt.Process) {
	m.processes = append(m.processes, p)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:    xid.New().String(),
		Name:  name,
		Total: total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars)-1)
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// StartServer starts the monitor as a web server with a custom port if
// wanted. It returns the port the server actually listens on.
func (m *Monitor) StartServer() int {
	r := mux.NewRouter()

	r.HandleFunc("/api/translate", m.translate)
	r.HandleFunc("/api/page", m.readPage)
	r.HandleFunc("/api/regions", m.listRegions)
	r.HandleFunc("/api/processes", m.listProcesses)
	r.HandleFunc("/api/state", m.engineState)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	fmt.Fprintf(
		os.Stderr,
		"Monitoring guest memory with http://localhost:%d\n",
		port)

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()

	return port
}

type translationReq struct {
	proc *nt.Process
	dtb  nt.DTB
	addr nt.VirtualAddress
}

// parseTranslationReq reads the pid, dtb, and addr query parameters.
// Numbers accept the 0x prefix. The pid parameter is optional; without
// it, the translation runs without a process context.
func (m *Monitor) parseTranslationReq(
	r *http.Request,
) (translationReq, error) {
	req := translationReq{}

	dtbStr := r.URL.Query().Get("dtb")
	dtb, err := strconv.ParseUint(dtbStr, 0, 64)
	if err != nil {
		return req, fmt.Errorf("invalid dtb %q", dtbStr)
	}
	req.dtb = nt.DTB(dtb)

	addrStr := r.URL.Query().Get("addr")
	addr, err := strconv.ParseUint(addrStr, 0, 64)
	if err != nil {
		return req, fmt.Errorf("invalid addr %q", addrStr)
	}
	req.addr = nt.VirtualAddress(addr)

	pidStr := r.URL.Query().Get("pid")
	if pidStr == "" {
		return req, nil
	}

	pid, err := strconv.ParseUint(pidStr, 0, 64)
	if err != nil {
		return req, fmt.Errorf("invalid pid %q", pidStr)
	}

	req.proc = m.findProcess(pid)
	if req.proc == nil {
		return req, fmt.Errorf("unknown pid %d", pid)
	}

	return req, nil
}

func (m *Monitor) findProcess(pid uint64) *nt.Process {
	for _, p := range m.processes {
		if p.PID == pid {
			return p
		}
	}

	return nil
}

type translationRsp struct {
	State string `json:"state"`
	PAddr uint64 `json:"paddr,omitempty"`
}

func (m *Monitor) translate(w http.ResponseWriter, r *http.Request) {
	req, err := m.parseTranslationReq(r)
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	res := m.translator.Translate(m.session, req.proc, req.dtb, req.addr)

	rsp := translationRsp{State: res.State.String()}
	if res.State == nt.TranslationMapped {
		rsp.PAddr = res.PAddr
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) readPage(w http.ResponseWriter, r *http.Request) {
	req, err := m.parseTranslationReq(r)
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	data, err := m.translator.ReadPage(m.session, req.proc, req.dtb, req.addr)
	if err != nil {
		w.WriteHeader(404)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, err = w.Write(data)
	dieOnErr(err)
}

type regionRsp struct {
	ID    uint64 `json:"id"`
	Start uint64 `json:"start"`
	Size  uint64 `json:"size"`
}

func (m *Monitor) listRegions(w http.ResponseWriter, r *http.Request) {
	pidStr := r.URL.Query().Get("pid")
	pid, err := strconv.ParseUint(pidStr, 0, 64)
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintf(w, "Error: invalid pid %q", pidStr)
		return
	}

	regions := []regionRsp{}
	if m.regions != nil {
		for _, reg := range m.regions.Regions(pid) {
			regions = append(regions, regionRsp{
				ID:    uint64(reg.ID),
				Start: reg.Start,
				Size:  reg.Size,
			})
		}
	}

	bytes, err := json.Marshal(regions)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listProcesses(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "[")
	for i, p := range m.processes {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "{\"pid\":%d,\"kernel_dtb\":%d}", p.PID, p.KernelDTB)
	}
	fmt.Fprint(w, "]")
}

func (m *Monitor) engineState(w http.ResponseWriter, _ *http.Request) {
	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.translator)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	bytes, err := json.Marshal(m.progressBars)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
