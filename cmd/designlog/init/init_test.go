package initcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/designlog/cmd/designlog/init"
	"github.com/papercomputeco/designlog/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		Expect(initcmder.NewInitCmd().Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})

	It("has a --preset flag", func() {
		f := initcmder.NewInitCmd().Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	execute := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir = GinkgoT().TempDir()
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
	})

	It("creates the local directory once", func() {
		Expect(execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Initialized .designlog directory"))

		info, err := os.Stat(filepath.Join(tmpDir, ".designlog"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())

		out.Reset()
		Expect(execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Already initialized"))
	})

	It("writes a preset config", func() {
		Expect(execute("--preset", "nvidia-kimi")).To(Succeed())

		data, err := os.ReadFile(filepath.Join(tmpDir, ".designlog", "config.toml"))
		Expect(err).NotTo(HaveOccurred())

		var cfg config.Config
		Expect(toml.Unmarshal(data, &cfg)).To(Succeed())
		Expect(cfg.Default.Provider).To(Equal("nvidia"))
		Expect(cfg.Providers.NVIDIA.Model).To(Equal("moonshotai/kimi-k2.5"))
		Expect(*cfg.Providers.NVIDIA.Stream).To(BeTrue())
	})

	It("refuses to overwrite config without --force", func() {
		Expect(execute("--preset", "cerebras")).To(Succeed())
		Expect(execute("--preset", "gemini")).To(MatchError(ContainSubstring("--force")))
		Expect(execute("--preset", "gemini", "--force")).To(Succeed())

		cfger, err := config.NewConfiger(filepath.Join(tmpDir, ".designlog"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfger.GetConfigValue("default.provider")).To(Equal("gemini"))
	})

	It("rejects unknown presets before creating anything", func() {
		Expect(execute("--preset", "openai")).To(MatchError(ContainSubstring("unknown preset")))
		_, err := os.Stat(filepath.Join(tmpDir, ".designlog"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})
})
