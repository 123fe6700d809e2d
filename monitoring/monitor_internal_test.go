package monitoring

import (
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Skyrano/icebox/memory"
	"github.com/Skyrano/icebox/nt"
	"github.com/Skyrano/icebox/vad"
)

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
	)

	BeforeEach(func() {
		m = NewMonitor()
		m.RegisterTranslator(nt.MakeBuilder().
			WithPhysicalMemory(memory.NewStorage(0x10000)).
			Build("Translator"))
		m.RegisterSession(&nt.Session{})
	})

	It("should register processes and find them by PID", func() {
		m.RegisterProcess(&nt.Process{PID: 4})
		m.RegisterProcess(&nt.Process{PID: 8})

		Expect(m.findProcess(8)).To(Equal(m.processes[1]))
		Expect(m.findProcess(12)).To(BeNil())
	})

	It("should parse a translation request", func() {
		m.RegisterProcess(&nt.Process{PID: 4})

		r := httptest.NewRequest("GET",
			"/api/translate?pid=4&dtb=0x1000&addr=0x405010", nil)

		req, err := m.parseTranslationReq(r)

		Expect(err).ToNot(HaveOccurred())
		Expect(req.proc.PID).To(Equal(uint64(4)))
		Expect(req.dtb).To(Equal(nt.DTB(0x1000)))
		Expect(req.addr).To(Equal(nt.VirtualAddress(0x405010)))
	})

	It("should allow translation requests without a process", func() {
		r := httptest.NewRequest("GET",
			"/api/translate?dtb=0x1000&addr=0x405010", nil)

		req, err := m.parseTranslationReq(r)

		Expect(err).ToNot(HaveOccurred())
		Expect(req.proc).To(BeNil())
	})

	It("should reject a request naming an unknown process", func() {
		r := httptest.NewRequest("GET",
			"/api/translate?pid=99&dtb=0x1000&addr=0x405010", nil)

		_, err := m.parseTranslationReq(r)

		Expect(err).To(HaveOccurred())
	})

	It("should reject a request with a malformed address", func() {
		r := httptest.NewRequest("GET",
			"/api/translate?dtb=0x1000&addr=nope", nil)

		_, err := m.parseTranslationReq(r)

		Expect(err).To(HaveOccurred())
	})

	It("should serve a translation over HTTP", func() {
		r := httptest.NewRequest("GET",
			"/api/translate?dtb=0x1000&addr=0x405010", nil)
		w := httptest.NewRecorder()

		m.translate(w, r)

		Expect(w.Code).To(Equal(200))
		Expect(w.Body.String()).To(Equal(`{"state":"unmapped"}`))
	})

	It("should serve region records over HTTP", func() {
		regions := vad.NewRegionTable()
		regions.Insert(vad.Region{PID: 4, ID: 0x100, Start: 0x1000, Size: 0x2000})
		m.RegisterRegionTable(regions)

		r := httptest.NewRequest("GET", "/api/regions?pid=4", nil)
		w := httptest.NewRecorder()

		m.listRegions(w, r)

		Expect(w.Code).To(Equal(200))
		Expect(w.Body.String()).To(
			Equal(`[{"id":256,"start":4096,"size":8192}]`))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("scan", 100)
		bar.IncrementInProgress(10)
		bar.MoveInProgressToFinished(4)

		Expect(bar.InProgress).To(Equal(uint64(6)))
		Expect(bar.Finished).To(Equal(uint64(4)))
		Expect(m.progressBars).To(HaveLen(1))

		m.CompleteProgressBar(bar)
		Expect(m.progressBars).To(BeEmpty())
	})
})
