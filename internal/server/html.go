package server

const indexHTML = `
<!DOCTYPE html>
<html>
<head>
    <title>WatchHer Safety Monitor</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { margin: 0; font-family: 'Segoe UI', Arial, sans-serif; background: #2c3e50; color: #ecf0f1; }
        .app { max-width: 1280px; margin: 0 auto; padding: 16px; }
        .header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 16px; }
        .title { font-size: 22px; font-weight: 600; }
        .badge { padding: 6px 14px; border-radius: 4px; background: #27ae60; font-weight: 600; }
        .grid { display: grid; grid-template-columns: 2fr 1fr; gap: 16px; }
        .panel { background: #34495e; border-radius: 6px; padding: 14px; }
        .panel h2 { margin: 0 0 10px; font-size: 15px; text-transform: uppercase; letter-spacing: 1px; color: #95a5a6; }
        .stats div { padding: 4px 0; font-size: 14px; }
        #stream, #heatmap { width: 100%; display: block; background: #000; border-radius: 4px; }
        .controls { display: flex; gap: 8px; flex-wrap: wrap; margin-top: 10px; }
        button { background: #27ae60; color: white; border: none; border-radius: 4px; padding: 8px 14px; cursor: pointer; font-size: 13px; }
        button.stop { background: #e74c3c; }
        button.neutral { background: #7f8c8d; }
        #log { height: 180px; overflow-y: auto; background: #1a252f; border-radius: 4px; padding: 8px; font-family: monospace; font-size: 12px; white-space: pre-wrap; }
    </style>
</head>
<body>
    <div class="app">
        <div class="header">
            <div class="title">WatchHer - Women's Safety Monitoring</div>
            <span class="badge" id="threat-badge">SAFE</span>
        </div>

        <div class="grid">
            <div class="panel">
                <h2>Live Feed</h2>
                <img id="stream" src="/stream" alt="Annotated monitoring stream">
                <div class="controls">
                    <button onclick="startSession()">Start Monitoring</button>
                    <button class="stop" onclick="post('/api/session/stop')">Stop</button>
                    <button class="neutral" onclick="post('/api/session/clear')">Clear Heatmap</button>
                    <button class="neutral" onclick="exportHeatmap()">Export Heatmap</button>
                    <button class="neutral" onclick="window.open('/api/report/text')">Safety Report</button>
                </div>
            </div>

            <div>
                <div class="panel" style="margin-bottom:16px;">
                    <h2>Safety Statistics</h2>
                    <div class="stats" id="stats">Waiting for data...</div>
                </div>
                <div class="panel">
                    <h2>Risk Heatmap</h2>
                    <img id="heatmap" src="/api/heatmap" alt="Risk heatmap">
                </div>
            </div>
        </div>

        <div class="panel" style="margin-top:16px;">
            <h2>Activity Log</h2>
            <div id="log"></div>
        </div>
    </div>

    <script>
        const badge = document.getElementById('threat-badge');
        const stats = document.getElementById('stats');
        const log = document.getElementById('log');

        function renderStatus(s) {
            const st = s.statistics;
            badge.textContent = st.threat_level;
            badge.style.background = s.threat_color;
            stats.innerHTML =
                'Women Monitored: ' + st.women_monitored + '<br>' +
                'Safety Alerts: ' + st.safety_alerts + '<br>' +
                'Lone Women: ' + st.lone_women_incidents + '<br>' +
                'Surrounded Women: ' + st.surrounded_women_incidents + '<br>' +
                'Distress Signals: ' + st.distress_signals + '<br>' +
                'Frames: ' + st.frames_processed + ' (' + st.frame_rate.toFixed(1) + ' fps)<br>' +
                'Risk Zones: ' + s.risk_zones + '<br>' +
                'Monitoring: ' + (s.monitoring ? 'active' : 'stopped');
        }

        const events = new EventSource('/api/status/stream');
        events.onmessage = (e) => renderStatus(JSON.parse(e.data));

        setInterval(() => {
            document.getElementById('heatmap').src = '/api/heatmap?t=' + Date.now();
        }, 3000);

        async function refreshLog() {
            const res = await fetch('/api/log?n=50');
            const data = await res.json();
            log.textContent = (data.entries || [])
                .map(e => '[' + e.level + '] [' + e.module + '] ' + e.message)
                .join('\n');
            log.scrollTop = log.scrollHeight;
        }
        setInterval(refreshLog, 3000);
        refreshLog();

        async function post(url, body) {
            const res = await fetch(url, {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: body ? JSON.stringify(body) : null,
            });
            if (!res.ok) {
                const err = await res.json().catch(() => ({}));
                alert(err.error || ('request failed: ' + res.status));
            }
            return res;
        }

        function startSession() {
            const url = prompt('Camera stream URL (leave empty for default):',
                'http://localhost:8554/stream');
            if (url === null) return;
            post('/api/session/start', { source: 'camera', url: url });
        }

        async function exportHeatmap() {
            const res = await post('/api/export');
            if (res.ok) {
                const data = await res.json();
                window.open(data.url);
            }
        }
    </script>
</body>
</html>
`
