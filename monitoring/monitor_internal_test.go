package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/TomHuangsrc/umi/lumi"
	"github.com/TomHuangsrc/umi/sim"
)

var _ = Describe("Monitor", func() {
	var (
		engine  sim.Engine
		monitor *Monitor
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		monitor = NewMonitor()
		monitor.RegisterEngine(engine)
	})

	It("should find the buffers of a component's ports", func() {
		endpoint := lumi.MakeBuilder().
			WithEngine(engine).
			Build("Left")
		monitor.RegisterComponent(endpoint)

		// Two ports, each with an incoming and an outgoing buffer.
		Expect(monitor.buffers).To(HaveLen(4))
	})

	It("should report the engine time", func() {
		recorder := httptest.NewRecorder()

		monitor.now(recorder, nil)

		Expect(recorder.Body.String()).To(ContainSubstring("now"))
	})

	It("should list registered components", func() {
		endpoint := lumi.MakeBuilder().
			WithEngine(engine).
			Build("Left")
		monitor.RegisterComponent(endpoint)

		recorder := httptest.NewRecorder()
		monitor.listComponents(recorder, nil)

		var names []string
		Expect(json.Unmarshal(recorder.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"Left"}))
	})

	It("should report link endpoint credits", func() {
		endpoint := lumi.MakeBuilder().
			WithEngine(engine).
			WithInitialCredits(6).
			Build("Left")
		monitor.RegisterComponent(endpoint)

		recorder := httptest.NewRecorder()
		monitor.listCredits(recorder, nil)

		var rsp []struct {
			Endpoint string `json:"endpoint"`
			Channel  string `json:"channel"`
			Credits  int    `json:"credits"`
		}
		Expect(json.Unmarshal(recorder.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(HaveLen(2))
		Expect(rsp[0].Credits).To(Equal(6))
	})

	It("should respond 404 for an unknown component", func() {
		recorder := httptest.NewRecorder()

		comp := monitor.findComponentOr404(recorder, "Nope")

		Expect(comp).To(BeNil())
		Expect(recorder.Code).To(Equal(http.StatusNotFound))
	})
})
