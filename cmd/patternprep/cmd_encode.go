package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"patternprep/internal/diag"
	"patternprep/internal/encode"
	"patternprep/internal/utility"
	"patternprep/pkg/contract"
	rfs "patternprep/plugins/reader/filesystem"
	wfs "patternprep/plugins/writer/filesystem"
)

func newEncodeCmd() *cobra.Command {
	var profile, out string
	cmd := &cobra.Command{
		Use:   "encode --profile p.yaml [--out f.txt] data.csv",
		Short: "Encode a CSV dataset into a space-separated token file",
		Long: `Maps each configured column to prefix+value tokens according to a YAML
profile and writes one line per kept record. The default output is
<csv stem>.txt next to the CSV file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := encode.LoadProfile(profile)
			if err != nil {
				return configFail("编码档案无效", err)
			}
			in := args[0]
			if out == "" {
				id := contract.NormalizeFileID(in)
				out = filepath.Join(filepath.Dir(in), id.Stem()+".txt")
			}
			rc, err := openInput(cmd, in)
			if err != nil {
				return err
			}
			defer rc.Close()
			res, err := encode.Encode(cmd.Context(), rc, p)
			if err != nil {
				return classified("编码失败", err)
			}
			if err := writeLines(cmd, out, res.Lines); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[encode] %s -> %s | records=%d kept=%d dropped=%d\n",
				in, out, res.Records, len(res.Lines), res.Dropped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "编码档案（YAML）")
	cmd.Flags().StringVarP(&out, "out", "o", "", "输出文件路径")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func newAnnotateCmd() *cobra.Command {
	var profile, outDir string
	cmd := &cobra.Command{
		Use:   "annotate --profile u.yaml [--out-dir d] tokens.txt...",
		Short: "Append utility annotations in HUIM and USPAN formats",
		Long: `For every token file writes <stem>HUIM.txt (tokens:total:weights) and
<stem>HUIMUSPAN.txt (t[w] -1 ... -2 SUtility:total). Empty lines are skipped.
The default output dir is the directory of each input file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := utility.LoadProfile(profile)
			if err != nil {
				return configFail("效用档案无效", err)
			}
			for _, in := range args {
				rc, err := openInput(cmd, in)
				if err != nil {
					return err
				}
				res, err := utility.Annotate(cmd.Context(), rc, p)
				_ = rc.Close()
				if err != nil {
					return classified(fmt.Sprintf("标注失败 %s", in), err)
				}
				dir := outDir
				if dir == "" {
					dir = filepath.Dir(in)
				}
				huim, uspan := utility.OutputNames(contract.NormalizeFileID(in).Stem())
				if err := writeLines(cmd, filepath.Join(dir, huim), res.HUIM); err != nil {
					return err
				}
				if err := writeLines(cmd, filepath.Join(dir, uspan), res.USPAN); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[annotate] %s -> %s, %s | lines=%d skipped=%d\n",
					in, huim, uspan, len(res.HUIM), res.Skipped)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&profile, "profile", "p", "", "效用档案（YAML）")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "输出目录")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

// openInput 复用目录 Reader 的解码容错打开单个文件；不存在时为配置类失败。
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if st, err := os.Stat(path); err != nil || st.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is a directory", path)
		}
		return nil, configFail("输入文件不可用", fmt.Errorf("%w: %v", contract.ErrInputMissing, err))
	}
	rc, err := rfs.New(nil).Open(cmd.Context(), contract.NormalizeFileID(path))
	if err != nil {
		return nil, runtimeFail("打开输入失败", err)
	}
	return rc, nil
}

func writeLines(cmd *cobra.Command, path string, lines []string) error {
	w, err := wfs.New(&wfs.Options{OutputDir: filepath.Dir(path)})
	if err != nil {
		return runtimeFail("创建 Writer 失败", err)
	}
	if err := w.WriteLines(cmd.Context(), filepath.Base(path), lines); err != nil {
		return runtimeFail("写出失败 "+path, err)
	}
	return nil
}

// classified: 输入类错误（档案、列缺失、权重不足）映射为配置类退出码，其余为运行期失败。
func classified(prefix string, err error) error {
	if diag.Classify(err) == diag.CodeInput {
		return configFail(prefix, err)
	}
	return runtimeFail(prefix, err)
}
