package report

import (
	"os"
	"path/filepath"

	"github.com/livp123/logsift/internal/utils/fileutil"
	pkgerrors "github.com/livp123/logsift/pkg/errors"
)

// WriteTemplate materializes the built-in template as dir/report.html
// so operators can start customizing from a working copy. An existing
// file is only replaced when force is set.
func WriteTemplate(dir string, force bool) (string, error) {
	if err := fileutil.EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, TemplateName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", pkgerrors.NewReportWriteError(path, os.ErrExist)
		}
	}
	if err := fileutil.AtomicWriteFile(path, []byte(defaultTemplate), 0o644); err != nil {
		return "", pkgerrors.NewReportWriteError(path, err)
	}
	return path, nil
}

// defaultTemplate is self-contained: sorting is plain JavaScript, no
// external assets, so a report opens anywhere including offline.
const defaultTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Slowest URLs</title>
<style>
  body { font: 14px/1.5 -apple-system, "Segoe UI", Roboto, sans-serif; margin: 2em; color: #1c2733; }
  h1 { font-size: 20px; }
  table { border-collapse: collapse; width: 100%; }
  th, td { border-bottom: 1px solid #dfe5eb; padding: 6px 10px; text-align: right; white-space: nowrap; }
  th { cursor: pointer; background: #f3f6f9; position: sticky; top: 0; user-select: none; }
  th.sorted-asc::after { content: " \25B4"; }
  th.sorted-desc::after { content: " \25BE"; }
  td.url, th.url { text-align: left; font-family: ui-monospace, SFMono-Regular, Menlo, monospace; }
  tr:hover td { background: #f8fafc; }
</style>
</head>
<body>
<h1>Slowest URLs</h1>
<table id="report">
  <thead>
    <tr>
      <th class="url" data-key="url">url</th>
      <th data-key="count">count</th>
      <th data-key="count_perc">count_perc</th>
      <th data-key="time_sum">time_sum</th>
      <th data-key="time_perc">time_perc</th>
      <th data-key="time_avg">time_avg</th>
      <th data-key="time_max">time_max</th>
      <th data-key="time_med">time_med</th>
    </tr>
  </thead>
  <tbody></tbody>
</table>
<script>
var table = $table_json;

(function () {
  var tbody = document.querySelector("#report tbody");
  var heads = document.querySelectorAll("#report th");
  var state = { key: "time_sum", dir: -1 };

  function render() {
    var rows = table.slice().sort(function (a, b) {
      var x = a[state.key], y = b[state.key];
      if (x === y) return 0;
      return (x < y ? -1 : 1) * state.dir;
    });
    tbody.innerHTML = "";
    rows.forEach(function (r) {
      var tr = document.createElement("tr");
      ["url", "count", "count_perc", "time_sum", "time_perc", "time_avg", "time_max", "time_med"]
        .forEach(function (k) {
          var td = document.createElement("td");
          if (k === "url") td.className = "url";
          td.textContent = r[k];
          tr.appendChild(td);
        });
      tbody.appendChild(tr);
    });
    heads.forEach(function (th) {
      th.classList.remove("sorted-asc", "sorted-desc");
      if (th.dataset.key === state.key) {
        th.classList.add(state.dir === 1 ? "sorted-asc" : "sorted-desc");
      }
    });
  }

  heads.forEach(function (th) {
    th.addEventListener("click", function () {
      if (state.key === th.dataset.key) {
        state.dir = -state.dir;
      } else {
        state.key = th.dataset.key;
        state.dir = -1;
      }
      render();
    });
  });

  render();
})();
</script>
</body>
</html>
`
