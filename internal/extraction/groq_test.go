package extraction

import (
	"context"
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Groq", func() {
	var (
		ghttpServer *ghttp.Server
		groq        *Groq
		raw         json.RawMessage
		err         error
	)

	chatResponse := func(content string) map[string]any {
		return map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
	}

	BeforeEach(func() {
		ghttpServer = ghttp.NewServer()
		groq = &Groq{
			baseURL: ghttpServer.URL(),
			apiKey:  "test-key",
			model:   "llama3-8b-8192",
			client:  &http.Client{},
		}
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	JustBeforeEach(func() {
		raw, err = groq.Extract(context.Background(), "invoice text")
	})

	When("the API returns a JSON object", func() {
		BeforeEach(func() {
			ghttpServer.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/chat/completions"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer test-key"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, chatResponse(`{"vendor": {"name": "Acme"}}`)),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the raw JSON", func() {
			Expect(string(raw)).To(Equal(`{"vendor": {"name": "Acme"}}`))
		})
	})

	When("building the request", func() {
		var sent groqChatRequest

		BeforeEach(func() {
			sent = groqChatRequest{}
			ghttpServer.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/chat/completions"),
				func(w http.ResponseWriter, r *http.Request) {
					Expect(json.NewDecoder(r.Body).Decode(&sent)).To(Succeed())
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, chatResponse(`{"vendor": {"name": "Acme"}}`)),
			))
		})

		It("should ask for a JSON object response", func() {
			Expect(sent.ResponseFormat.Type).To(Equal("json_object"))
		})

		It("should send the configured model", func() {
			Expect(sent.Model).To(Equal("llama3-8b-8192"))
		})
	})

	When("the response is wrapped in markdown code blocks", func() {
		BeforeEach(func() {
			ghttpServer.AppendHandlers(ghttp.RespondWithJSONEncoded(
				http.StatusOK,
				chatResponse("```json\n{\"vendor\": {\"name\": \"Acme\"}}\n```"),
			))
		})

		It("should strip the fences", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal(`{"vendor": {"name": "Acme"}}`))
		})
	})

	When("the API returns a non-200 status", func() {
		BeforeEach(func() {
			ghttpServer.AppendHandlers(ghttp.RespondWith(http.StatusTooManyRequests, "rate limited"))
		})

		It("returns an UpstreamError", func() {
			var upstreamErr *UpstreamError
			Expect(err).To(BeAssignableToTypeOf(upstreamErr))
			Expect(err.Error()).To(ContainSubstring("429"))
		})
	})

	When("the response envelope is not JSON", func() {
		BeforeEach(func() {
			ghttpServer.AppendHandlers(ghttp.RespondWith(http.StatusOK, "not json"))
		})

		It("returns a MalformedResponseError", func() {
			var malformedErr *MalformedResponseError
			Expect(err).To(BeAssignableToTypeOf(malformedErr))
		})
	})

	When("the response has no choices", func() {
		BeforeEach(func() {
			ghttpServer.AppendHandlers(ghttp.RespondWithJSONEncoded(
				http.StatusOK,
				map[string]any{"choices": []any{}},
			))
		})

		It("returns an UpstreamError", func() {
			var upstreamErr *UpstreamError
			Expect(err).To(BeAssignableToTypeOf(upstreamErr))
		})
	})

	When("the response content has no JSON object", func() {
		BeforeEach(func() {
			ghttpServer.AppendHandlers(ghttp.RespondWithJSONEncoded(
				http.StatusOK,
				chatResponse("I could not read the document."),
			))
		})

		It("returns a MalformedResponseError", func() {
			var malformedErr *MalformedResponseError
			Expect(err).To(BeAssignableToTypeOf(malformedErr))
		})
	})

	When("the API is unreachable", func() {
		BeforeEach(func() {
			ghttpServer.Close()
		})

		It("returns an UpstreamError", func() {
			var upstreamErr *UpstreamError
			Expect(err).To(BeAssignableToTypeOf(upstreamErr))
		})
	})
})
